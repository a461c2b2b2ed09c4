package sessionauth

import "context"

// Message is a templated outbound notification. Template names a body
// template known to the notifier; Data fills it.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// Notifier delivers messages. The engine logs and drops its errors, so a
// mail outage never fails a login or registration.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, Message) error { return nil }
