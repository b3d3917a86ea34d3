package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/inbox-summarizer/internal/model"
)

// AuthError indicates that authentication has failed or expired for a
// mailbox backend. It is returned when the backend rejects the stored
// credentials.
type AuthError struct {
	Backend string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Backend, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// AsAuthError extracts the AuthError from err's chain, if present.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// Client defines the contract every mailbox backend must implement.
// Both operations may fail with network or authentication errors, which
// propagate to the caller unmodified.
type Client interface {
	// ListUnreadIDs returns up to limit identifiers of unread messages,
	// in backend-defined order (typically most recent first).
	ListUnreadIDs(ctx context.Context, limit int) ([]string, error)

	// GetMessage retrieves the full structure of a single message:
	// headers, MIME part tree, and preview snippet.
	GetMessage(ctx context.Context, id string) (*model.Message, error)
}
