package ports

import "context"

// MessagePort is one end of a bidirectional message channel between the
// loader and its background worker. Payloads are untyped; receivers validate
// their shape.
type MessagePort interface {
	// Post sends msg to the peer. It blocks while the channel is full.
	Post(ctx context.Context, msg any) error

	// Messages yields payloads posted by the peer. It is closed when the
	// peer closes the channel.
	Messages() <-chan any

	// Close stops this end from posting and signals the peer.
	Close() error
}
