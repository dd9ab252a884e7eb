package notify

import (
	"context"
	"time"

	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/texts"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

// Reminder nudges customers whose orders still wait for a payment receipt.
type Reminder struct {
	D        *Dispatcher
	Age      time.Duration
	Interval time.Duration
}

// Sweep sends one reminder per due order and records when it was sent.
// An order is due when it is older than Age and was not reminded within Age.
func (r *Reminder) Sweep(ctx context.Context, now time.Time) (int, error) {
	l := logging.FromContext(ctx).With("component", "notify.reminder")
	if r.D.Msg == nil {
		return 0, nil
	}

	cutoff := now.Add(-r.Age)
	orders, err := r.D.Repo.OrdersForReminder(ctx, cutoff, cutoff)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, o := range orders {
		lang := r.D.Repo.UserLang(ctx, o.UserID)
		msg := messenger.Message{ChatID: o.UserID, Text: texts.T(lang, "receipt_reminder", o.OrderNumber)}
		if _, err := r.D.Msg.Send(ctx, msg); err != nil {
			l.Warn("reminder_send_failed", "order_id", o.ID, "user_id", o.UserID, "error", err)
		} else {
			sent++
		}
		if err := r.D.Repo.MarkReminded(ctx, o.ID, now); err != nil {
			l.Error("mark_reminded_failed", "order_id", o.ID, "error", err)
		}
	}
	return sent, nil
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Reminder) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("component", "notify.reminder")
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := r.Sweep(ctx, now.UTC())
			if err != nil {
				l.Error("reminder_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("reminder_sweep_done", "sent", n)
			}
		}
	}
}
