package commute

import (
	"commute-area-service/internal/ports"
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

// UnknownErrorMessage is reported when a failure carries no message.
const UnknownErrorMessage = "unknown error"

var (
	// ErrAreaNotFound is returned by UpdateArea for an id that is not in the list.
	ErrAreaNotFound = eris.New("zone not found")
	// ErrNotConfigured is returned before any fetch when the provider lacks credentials.
	ErrNotConfigured = ports.ErrIsochroneNotConfigured
)

// Message returns the text stored in the manager's error slot for err.
// Known sentinels report their own message without wrapping context.
func Message(err error) string {
	if err == nil {
		return ""
	}

	for _, sentinel := range []error{
		ErrAreaNotFound,
		ports.ErrIsochroneNotConfigured,
		ports.ErrRangeExceeded,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
