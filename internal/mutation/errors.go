package mutation

import (
	"errors"
	"net/http"

	"github.com/agentoven/agentoven/console/internal/review"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/transport"
)

// ErrDeclined is returned when the user did not confirm a mutation.
var ErrDeclined = errors.New("action cancelled")

// ValidationError rejects a payload before it reaches the backend.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

// Message turns any mutation error into the single line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		be *store.ErrBusy
		re *transport.RemoteError
		ne *transport.NetworkError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &be):
		return be.Error()
	case errors.As(err, &re):
		return re.Detail
	case errors.As(err, &ne):
		return "backend unreachable: " + ne.Err.Error()
	default:
		return err.Error()
	}
}

// StatusCode maps a mutation error to the HTTP status the console API
// answers with.
func StatusCode(err error) int {
	var (
		ve *ValidationError
		be *store.ErrBusy
		nf *store.ErrNotFound
		ue *store.ErrUnsupported
		re *transport.RemoteError
		ne *transport.NetworkError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.Is(err, review.ErrNoChanges):
		return http.StatusBadRequest
	case errors.As(err, &be), errors.Is(err, review.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, ErrDeclined):
		return http.StatusPreconditionRequired
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ue):
		return http.StatusMethodNotAllowed
	case errors.As(err, &re):
		return re.Status
	case errors.As(err, &ne):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
