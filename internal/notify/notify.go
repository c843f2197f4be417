// Package notify delivers slot announcements to chat channels. Delivery is
// fire-and-forget: failures are logged, never retried and never fatal.
package notify

import (
	"context"
	"log"
)

type Notifier interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Multi fans a message out to every channel, absorbing individual failures.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Send(ctx context.Context, text string) error {
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			log.Printf("notify: %s failed: %v", n.Name(), err)
		}
	}
	return nil
}
