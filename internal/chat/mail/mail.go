// Package mail is the outbound email capability the verification flow
// depends on. The service only ever sees the Sender interface; delivery
// failures are reported back, never swallowed.
package mail

import "context"

type Sender interface {
	// SendCode delivers a verification code to the given address. The caller
	// bounds the call with a context deadline; implementations must respect
	// it.
	SendCode(ctx context.Context, to, code string) error
}
