package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/throttle"
)

// SLAWorker periodically sweeps for tickets that are still awaiting a first
// response past the staleness threshold and publishes a reminder for each.
// The once-set guarantees at most one reminder per ticket across sweeps, so
// a ticket that stays untouched is not re-nagged every interval.
type SLAWorker struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	reminders  throttle.OnceSet
	dispatcher events.Dispatcher
	cfg        config.SLAConfig
	logger     *zap.Logger
	now        func() time.Time
}

// SLADependencies bundles collaborators for the worker.
type SLADependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Reminders  throttle.OnceSet
	Dispatcher events.Dispatcher
	Config     config.SLAConfig
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewSLAWorker constructs the worker.
func NewSLAWorker(deps SLADependencies) *SLAWorker {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAWorker{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		reminders:  deps.Reminders,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
		logger:     logger,
		now:        now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled. Intended to
// run in its own goroutine.
func (w *SLAWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.SweepInterval())
	defer ticker.Stop()

	w.logger.Info("sla worker started",
		zap.Duration("interval", w.cfg.SweepInterval()),
		zap.Duration("stale_after", w.cfg.StaleAfter()))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla worker stopped")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("sla sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs a single pass: find stale candidates, claim each via the
// once-set, and publish a reminder for the ones claimed. A failure on one
// ticket does not stop the rest of the batch.
func (w *SLAWorker) Sweep(ctx context.Context) error {
	cutoff := w.now().Add(-w.cfg.StaleAfter())
	candidates, err := w.tickets.ListStaleCandidates(ctx, cutoff, w.cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	recipients, err := w.users.ListEmailsByRoles(ctx, domain.RoleITStaff, domain.RoleManager)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	reminded := 0
	for i := range candidates {
		ticket := &candidates[i]
		claimed, err := w.reminders.MarkOnce(ctx, fmt.Sprintf("sla-stale:%d", ticket.ID))
		if err != nil {
			w.logger.Warn("stale reminder claim failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		w.dispatcher.Publish(ctx, events.Event{
			ID:         uuid.NewString(),
			Type:       events.EventTicketStale,
			TicketID:   ticket.ID,
			Recipients: recipients,
			Timestamp:  w.now(),
			Payload: events.TicketStalePayload{
				Title:     ticket.Title,
				CreatedAt: ticket.CreatedAt,
			},
		})
		reminded++
	}

	if reminded > 0 {
		w.logger.Info("stale ticket reminders sent",
			zap.Int("candidates", len(candidates)), zap.Int("reminded", reminded))
	}
	return nil
}
