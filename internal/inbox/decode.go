package inbox

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodePart decodes one URL-safe base64 part payload into text. Empty
// input yields an empty string with no error. Byte sequences that are not
// valid UTF-8 are dropped rather than failing the whole part.
//
// Malformed base64 returns an empty string alongside the error, so the
// extraction pipeline can carry on with partial content while callers
// that care can still tell a decode failure apart from an empty part.
func DecodePart(data string) (string, error) {
	if data == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Gmail omits padding on part data; retry before giving up.
		raw, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", fmt.Errorf("decoding part data: %w", err)
		}
	}

	return sanitizeUTF8(raw), nil
}

// sanitizeUTF8 converts raw bytes to a string, skipping over invalid
// UTF-8 sequences byte by byte.
func sanitizeUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
		}
		raw = raw[size:]
	}
	return sb.String()
}
