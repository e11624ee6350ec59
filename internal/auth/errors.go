package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"ssohub/internal/provider"
)

// ErrorKind classifies an authentication failure.
type ErrorKind int

const (
	// KindProtocol covers authorization-protocol failures reported by the
	// identity provider.
	KindProtocol ErrorKind = iota

	// KindNetwork covers transport failures reaching the identity
	// provider.
	KindNetwork

	// KindCanceled means the user or caller canceled the flow.
	KindCanceled

	// KindInvalidGrant means the stored credential was rejected and a
	// full reauthorization is required.
	KindInvalidGrant
)

func (k ErrorKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	case KindInvalidGrant:
		return "invalid-grant"
	default:
		return "unknown"
	}
}

// Error is the typed authentication-failure condition surfaced by the
// login and logout coordinators. It propagates to whatever invoked the
// operation; nothing in this package retries it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err as a typed authentication failure for op.
func newError(op string, err error) *Error {
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, provider.ErrReauthRequired):
		return KindInvalidGrant
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidGrantException", "AccessDeniedException", "UnauthorizedClientException":
			return KindInvalidGrant
		}
		return KindProtocol
	}
	return KindNetwork
}
