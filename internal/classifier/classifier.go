package classifier

import (
	"context"
	"errors"

	"github.com/lmercier/modbot/internal/models"
)

// Classifier sends message text to the moderation oracle and returns its
// verdict. Implementations make at most one logical network call per
// invocation (a single transient-failure retry is allowed).
type Classifier interface {
	Classify(ctx context.Context, text string) (models.CategoryVerdict, error)
}

var (
	// ErrUnavailable means the oracle could not be reached or answered
	// with a non-success status.
	ErrUnavailable = errors.New("moderation oracle unavailable")

	// ErrTimeout means no response arrived within the configured wait.
	ErrTimeout = errors.New("moderation oracle timed out")

	// ErrMalformedResponse means the oracle answered but the payload did
	// not match the expected schema.
	ErrMalformedResponse = errors.New("malformed oracle response")
)
