package notifier

import "context"

// Sink delivers a text message to a recipient identified by an opaque id.
// Failures are per-recipient: callers log and move on, and never retry
// within the same pass.
type Sink interface {
	Send(ctx context.Context, recipientID, text string) error
}
