package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/inbox-summarizer/internal/model"
)

func leaf(mime, text string) model.ContentPart {
	return model.ContentPart{MimeType: mime, Data: encode(text)}
}

func TestExtractBodyDirectData(t *testing.T) {
	root := model.ContentPart{
		MimeType: "text/plain",
		Data:     encode("direct body"),
		Parts: []model.ContentPart{
			leaf("text/plain", "child body"),
		},
	}

	// Direct data wins; children are not consulted.
	assert.Equal(t, "direct body", ExtractBody(&root))
}

func TestExtractBodyPrefersPlainOverHTML(t *testing.T) {
	root := model.ContentPart{
		MimeType: "multipart/alternative",
		Parts: []model.ContentPart{
			leaf("text/plain", "plain wins"),
			leaf("text/html", "<p>html loses</p>"),
		},
	}

	assert.Equal(t, "plain wins", ExtractBody(&root))
}

func TestExtractBodyJoinsPlainParts(t *testing.T) {
	root := model.ContentPart{
		MimeType: "multipart/mixed",
		Parts: []model.ContentPart{
			leaf("text/plain", "first"),
			leaf("image/png", "ignored"),
			leaf("text/plain", "second"),
		},
	}

	assert.Equal(t, "first\n\nsecond", ExtractBody(&root))
}

func TestExtractBodyFirstHTMLOnly(t *testing.T) {
	root := model.ContentPart{
		MimeType: "multipart/alternative",
		Parts: []model.ContentPart{
			leaf("text/html", "<p>first <b>html</b></p>"),
			leaf("text/html", "<p>second html</p>"),
		},
	}

	got := ExtractBody(&root)
	assert.Equal(t, "first html", got)
	assert.NotContains(t, got, "second")
}

func TestExtractBodyNestedParts(t *testing.T) {
	root := model.ContentPart{
		MimeType: "multipart/mixed",
		Parts: []model.ContentPart{
			{
				MimeType: "multipart/alternative",
				Parts: []model.ContentPart{
					leaf("text/plain", "nested plain"),
					leaf("text/html", "<p>nested html</p>"),
				},
			},
		},
	}

	assert.Equal(t, "nested plain", ExtractBody(&root))
}

func TestExtractBodyTraversalOrder(t *testing.T) {
	// Top level before sub-level, left to right within each.
	root := model.ContentPart{
		MimeType: "multipart/mixed",
		Parts: []model.ContentPart{
			{
				MimeType: "multipart/related",
				Data:     "",
				Parts: []model.ContentPart{
					leaf("text/plain", "deep a"),
				},
			},
			leaf("text/plain", "top b"),
		},
	}

	assert.Equal(t, "top b\n\ndeep a", ExtractBody(&root))
}

func TestExtractBodyDepthCap(t *testing.T) {
	// The only text leaf sits three levels down, past the cap.
	root := model.ContentPart{
		MimeType: "multipart/mixed",
		Parts: []model.ContentPart{
			{
				MimeType: "multipart/signed",
				Parts: []model.ContentPart{
					{
						MimeType: "multipart/alternative",
						Parts: []model.ContentPart{
							leaf("text/plain", "unreachable"),
						},
					},
				},
			},
		},
	}

	assert.Equal(t, model.NoBodySentinel, ExtractBody(&root))
}

func TestExtractBodyNoContent(t *testing.T) {
	assert.Equal(t, model.NoBodySentinel, ExtractBody(nil))
	assert.Equal(t, model.NoBodySentinel, ExtractBody(&model.ContentPart{
		MimeType: "multipart/mixed",
	}))
	assert.Equal(t, model.NoBodySentinel, ExtractBody(&model.ContentPart{
		MimeType: "multipart/mixed",
		Parts: []model.ContentPart{
			leaf("application/pdf", "binary"),
		},
	}))
}

func TestExtractBodyUndecodablePart(t *testing.T) {
	root := model.ContentPart{
		MimeType: "multipart/alternative",
		Parts: []model.ContentPart{
			{MimeType: "text/plain", Data: "%%%bad%%%"},
			leaf("text/plain", "good part"),
		},
	}

	// The broken part degrades to nothing; the good one survives.
	assert.Equal(t, "good part", ExtractBody(&root))
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs",
			in:   "<p>one</p><p>two</p>",
			want: "one\ntwo",
		},
		{
			name: "script dropped",
			in:   "<script>alert(1)</script><p>visible</p>",
			want: "visible",
		},
		{
			name: "style dropped",
			in:   "<style>p{color:red}</style>text",
			want: "text",
		},
		{
			name: "entities",
			in:   "<p>a &amp; b &lt;c&gt;</p>",
			want: "a & b <c>",
		},
		{
			name: "blank line collapse",
			in:   "<div>a</div><br><br><br><div>b</div>",
			want: "a\n\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}
