package model

import "time"

// Default values used when a message is missing the corresponding header.
const (
	DefaultSubject = "(No Subject)"
	DefaultSender  = "(Unknown Sender)"
)

// NoBodySentinel is returned as the body when a message carries no
// decodable text/plain or text/html content.
const NoBodySentinel = "(No readable body found)"

// Header is a single message header as reported by the mailbox.
// Name matching is case-insensitive.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContentPart is a node in a message's MIME structure tree. A container
// part holds sub-parts in Parts; a leaf part carries its body content in
// Data as a URL-safe base64 string. A degenerate single-part message has
// Data directly on the root with no sub-parts.
type ContentPart struct {
	// MimeType is the part's media type, e.g. "text/plain",
	// "text/html", or "multipart/alternative".
	MimeType string `json:"mimeType"`

	// Data is the URL-safe base64-encoded body payload. Empty on
	// container parts.
	Data string `json:"data,omitempty"`

	// Parts holds the ordered sub-parts of a container.
	Parts []ContentPart `json:"parts,omitempty"`
}

// Message is the raw transport-level message as returned by a mailbox
// backend, before body normalization.
type Message struct {
	// ID is the backend-assigned stable identifier.
	ID string `json:"id"`

	// Headers is the unordered set of message headers.
	Headers []Header `json:"headers"`

	// Payload is the root of the MIME part tree.
	Payload ContentPart `json:"payload"`

	// Snippet is the short preview string supplied by the backend.
	Snippet string `json:"snippet"`
}

// HeaderValue looks up a header by name, case-insensitively. The second
// return value reports whether the header was present.
func (m *Message) HeaderValue(name string) (string, bool) {
	for _, h := range m.Headers {
		if equalFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// equalFold is an allocation-free ASCII case-insensitive comparison;
// header names are ASCII per RFC 5322.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// NormalizedMessage is the record produced per fetched message: headers
// resolved with defaults, the MIME tree collapsed to one plaintext body,
// and the backend snippet passed through verbatim. It is immutable after
// construction.
type NormalizedMessage struct {
	ID      string `json:"id" db:"id"`
	Subject string `json:"subject" db:"subject"`
	Sender  string `json:"sender" db:"sender"`
	Body    string `json:"body" db:"body"`
	Snippet string `json:"snippet" db:"snippet"`

	// FetchedAt is when this message was retrieved from the mailbox.
	FetchedAt time.Time `json:"fetched_at" db:"fetched_at"`
}

// AnalysisInput formats the message the way the analyzer expects it:
// subject and sender header lines followed by a blank line and the body.
func (m NormalizedMessage) AnalysisInput() string {
	return "Subject: " + m.Subject + "\nFrom: " + m.Sender + "\n\n" + m.Body
}
