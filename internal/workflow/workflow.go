// Package workflow runs one pass of the booking flow: ensure the session is
// alive, list the released slots, pick one, announce it and (when enabled)
// book it.
package workflow

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/example/bbdc-bot/internal/bbdc"
	"github.com/example/bbdc-bot/internal/captcha"
	"github.com/example/bbdc-bot/internal/history"
	"github.com/example/bbdc-bot/internal/notify"
	"github.com/example/bbdc-bot/internal/session"
)

// ErrPassInFlight means a previous pass still holds the single-flight guard.
var ErrPassInFlight = errors.New("pass already in flight")

// SessionManager is the slice of session.Manager the driver needs.
type SessionManager interface {
	Ensure(ctx context.Context) error
	ListSlots(ctx context.Context, month string) (bbdc.SlotCollection, error)
	Book(ctx context.Context, slot bbdc.Slot) (bbdc.BookResult, error)
}

// Outcome of one pass.
const (
	OutcomeBooked   = "booked"
	OutcomeNotified = "notified"
	OutcomeSkipped  = "skipped"
	OutcomeNoSlot   = "no-slot"
	OutcomeError    = "error"
)

type Runner struct {
	Session  SessionManager
	Notifier notify.Notifier
	History  *history.Store

	Month         string
	Want          []int
	EnableBooking bool
	PassTimeout   time.Duration

	mu sync.Mutex
}

// RunPass executes one workflow pass. Concurrent callers sharing this Runner
// are rejected with ErrPassInFlight: two passes would race on the session.
func (r *Runner) RunPass(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrPassInFlight
	}
	defer r.mu.Unlock()

	if r.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.PassTimeout)
		defer cancel()
	}

	outcome, detail, err := r.pass(ctx)
	if err != nil {
		_ = r.History.RecordPass(ctx, OutcomeError, err.Error())
		return err
	}
	_ = r.History.RecordPass(ctx, outcome, detail)
	return nil
}

func (r *Runner) pass(ctx context.Context) (outcome, detail string, err error) {
	if err := r.Session.Ensure(ctx); err != nil {
		return "", "", err
	}

	slots, err := r.Session.ListSlots(ctx, r.Month)
	if err != nil {
		return "", "", err
	}
	slot, ok := session.ChooseSlot(slots, r.Want)
	if !ok {
		log.Printf("workflow: no slot available")
		return OutcomeNoSlot, "", nil
	}

	message := session.SlotMessage(slot)
	log.Printf("workflow: %s", message)
	r.announce(ctx, slot, message)

	if !r.EnableBooking {
		return OutcomeNotified, slot.SlotID.String(), nil
	}

	log.Printf("workflow: attempting to book")
	res, err := r.Session.Book(ctx, slot)
	if errors.Is(err, captcha.ErrSkipped) {
		log.Printf("workflow: ignoring this slot")
		return OutcomeSkipped, slot.SlotID.String(), nil
	}
	if err != nil {
		return "", "", err
	}
	log.Printf("workflow: %s", res.Message)
	return OutcomeBooked, res.Message, nil
}

// announce sends the slot message unless this slot was already announced on
// an earlier pass.
func (r *Runner) announce(ctx context.Context, slot bbdc.Slot, message string) {
	if r.Notifier == nil {
		return
	}
	seen, err := r.History.SeenSlot(ctx, slot.SlotID.String())
	if err != nil {
		log.Printf("workflow: history lookup failed: %v", err)
	}
	if seen {
		return
	}
	_ = r.Notifier.Send(ctx, message)
	if err := r.History.MarkNotified(ctx, slot.SlotID.String()); err != nil {
		log.Printf("workflow: history update failed: %v", err)
	}
}
