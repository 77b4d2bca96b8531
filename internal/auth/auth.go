package auth

import "context"

// Authenticator is the domain operation the handler wraps. An error
// return marks the invocation failed; the handler annotates it and
// passes it through to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, evt Event) error
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, evt Event) error

func (f AuthenticatorFunc) Authenticate(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Healthy returns the placeholder authenticator: it accepts every
// request, so each invocation reports the service healthy.
func Healthy() Authenticator {
	return AuthenticatorFunc(func(context.Context, Event) error {
		return nil
	})
}
