package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"beachbookings/internal/domain"
	"beachbookings/internal/metrics"

	"github.com/rs/zerolog"
)

const inviteEvent = "INVITE"

// Dispatcher renders notifications and hands them to the mailer in the background.
// Sends are attempted once. Failures are logged and counted, never returned.
type Dispatcher struct {
	mailer   domain.Mailer
	renderer *Renderer
	timeout  time.Duration
	logger   *zerolog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(mailer domain.Mailer, renderer *Renderer, timeout time.Duration, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		mailer:   mailer,
		renderer: renderer,
		timeout:  timeout,
		logger:   logger,
	}
}

// Dispatch schedules delivery of a booking event. It returns immediately.
func (d *Dispatcher) Dispatch(n Notification) {
	event := n.Event.String()

	subject, body, err := d.renderer.Render(n)
	if err != nil {
		metrics.IncNotification(event, metrics.OutcomeRenderError)
		d.logger.Error().Err(err).Str("event", event).Msg("failed to render notification")
		return
	}

	if len(n.Recipients) == 0 {
		metrics.IncNotification(event, metrics.OutcomeNoRecipients)
		d.logger.Debug().Str("event", event).Msg("no recipients, notification skipped")
		return
	}

	d.send(event, n.Recipients, subject, body)
}

// DispatchInvite schedules an invite mail to exactly one address.
func (d *Dispatcher) DispatchInvite(n InviteNotification) {
	subject, body, err := d.renderer.RenderInvite(n)
	if err != nil {
		metrics.IncNotification(inviteEvent, metrics.OutcomeRenderError)
		d.logger.Error().Err(err).Msg("failed to render invite")
		return
	}
	if n.Email == "" {
		metrics.IncNotification(inviteEvent, metrics.OutcomeNoRecipients)
		return
	}

	d.send(inviteEvent, []string{n.Email}, subject, body)
}

func (d *Dispatcher) send(event string, recipients []string, subject, body string) {
	to := append([]string(nil), recipients...)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.IncNotification(event, metrics.OutcomeFailed)
				d.logger.Error().Str("event", event).Interface("panic", r).Msg("mailer panicked")
			}
		}()

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if err := d.mailer.Send(ctx, to, subject, body); err != nil {
			metrics.IncNotification(event, metrics.OutcomeFailed)
			d.logger.Error().
				Err(err).
				Str("event", event).
				Int("recipients", len(to)).
				Msg("failed to send notification")
			return
		}

		metrics.IncNotification(event, metrics.OutcomeSent)
		d.logger.Info().
			Str("event", event).
			Int("recipients", len(to)).
			Msg("notification sent")
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifications still in flight: %w", ctx.Err())
	}
}
