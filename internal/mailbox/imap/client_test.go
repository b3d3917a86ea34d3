package imap

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartMessage = "From: alice@example.test\r\n" +
	"To: bob@example.test\r\n" +
	"Subject: lunch\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"frontier\"\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Lunch at noon?\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Lunch at noon?</p>\r\n" +
	"--frontier--\r\n"

const plainMessage = "From: alice@example.test\r\n" +
	"Subject: plain\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"just text\r\n"

func decodeLeaf(t *testing.T, data string) string {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(data)
	require.NoError(t, err)
	return string(raw)
}

func TestBuildPayloadMultipart(t *testing.T) {
	payload, snippet := buildPayload([]byte(multipartMessage))

	assert.Equal(t, "multipart/alternative", payload.MimeType)
	assert.Empty(t, payload.Data)
	require.Len(t, payload.Parts, 2)

	// The CRLF before a boundary belongs to the delimiter, not the part.
	assert.Equal(t, "text/plain", payload.Parts[0].MimeType)
	assert.Equal(t, "Lunch at noon?",
		decodeLeaf(t, payload.Parts[0].Data))
	assert.Equal(t, "text/html", payload.Parts[1].MimeType)

	assert.Equal(t, "Lunch at noon?", snippet)
}

func TestBuildPayloadSinglePart(t *testing.T) {
	payload, snippet := buildPayload([]byte(plainMessage))

	// A single leaf collapses to a direct root body, no sub-parts.
	assert.Equal(t, "text/plain", payload.MimeType)
	assert.Empty(t, payload.Parts)
	assert.Equal(t, "just text\r\n", decodeLeaf(t, payload.Data))
	assert.Equal(t, "just text", snippet)
}

func TestBuildPayloadEmpty(t *testing.T) {
	payload, snippet := buildPayload(nil)
	assert.Empty(t, payload.Data)
	assert.Empty(t, payload.Parts)
	assert.Empty(t, snippet)
}

func TestMakeSnippetTruncates(t *testing.T) {
	long := strings.Repeat("word ", 50)
	got := makeSnippet(long)
	assert.LessOrEqual(t, len([]rune(got)), snippetRuneLimit+1)
	assert.True(t, strings.HasSuffix(got, "…"))

	assert.Equal(t, "a b", makeSnippet("a\n\n  b\n"))
}

func TestParseUID(t *testing.T) {
	uid, err := parseUID("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), uid)

	_, err = parseUID("not-a-uid")
	assert.Error(t, err)
}
