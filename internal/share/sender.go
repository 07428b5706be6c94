package share

import "context"

// Message is a settlement message with the link recipients can open.
type Message struct {
	Text string
	Link string
}

// Sender delivers a settlement message through a messaging service.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
