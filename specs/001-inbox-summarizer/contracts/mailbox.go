// Package contracts/mailbox defines the interface every mailbox backend
// must implement. Two backends ship: Gmail (REST API) and IMAP.
//
// Gmail library: net/http against the Gmail REST API (OAuth bearer token)
// IMAP library: emersion/go-imap v2 + emersion/go-message
// Auth: token or password stored in the system keychain (99designs/keyring)
package contracts

// Client defines the mailbox backend interface.

// Key operations:
//
// ListUnreadIDs:
//   Gmail: GET /users/me/messages?labelIds=UNREAD&maxResults=N
//   IMAP: SELECT INBOX, UID SEARCH UNSEEN, keep the newest N UIDs
//   Returns: up to N message identifiers, newest first.
//
// GetMessage:
//   Gmail: GET /users/me/messages/{id}?format=full
//   IMAP: UID FETCH envelope + BODY.PEEK[], re-encode MIME leaves so
//   both backends present the same part-tree shape.
//   Returns: Message { ID, Headers, Payload part tree, Snippet }.
//   Part bodies are URL-safe base64; decoding happens in the inbox
//   package, never in the backend.
//
// Error handling:
//   401/403 (Gmail) and LOGIN rejection (IMAP) map to AuthError so the
//   UI can prompt for reconfiguration. Everything else propagates
//   unmodified.
