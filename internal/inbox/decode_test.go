package inbox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestDecodePartEmpty(t *testing.T) {
	text, err := DecodePart("")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestDecodePartRoundTrip(t *testing.T) {
	inputs := []string{
		"Please pay $500 by Friday.",
		"multi\nline\ntext",
		"unicode: héllo wörld — ünïcode ✓",
		" ",
	}

	for _, in := range inputs {
		text, err := DecodePart(encode(in))
		require.NoError(t, err)
		assert.Equal(t, in, text)
	}
}

func TestDecodePartUnpadded(t *testing.T) {
	// Gmail ships part data without padding characters.
	raw := base64.RawURLEncoding.EncodeToString([]byte("hello"))
	text, err := DecodePart(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestDecodePartMalformed(t *testing.T) {
	text, err := DecodePart("!!!not base64!!!")
	assert.Error(t, err)
	assert.Equal(t, "", text)
}

func TestDecodePartInvalidUTF8(t *testing.T) {
	// Valid base64 wrapping bytes that are not valid UTF-8: the bad
	// bytes are dropped, the rest survives.
	raw := base64.URLEncoding.EncodeToString([]byte{'o', 'k', 0xff, 0xfe, '!'})
	text, err := DecodePart(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
}
