// Package scheduler runs the date sweeper: invoices past their due date are
// marked overdue and sent estimates past their validity window are marked
// expired, for organizations that keep the automation enabled.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/invozo/invozo/internal/clock"
	"github.com/invozo/invozo/internal/config"
	estimatedomain "github.com/invozo/invozo/internal/estimate/domain"
	"github.com/invozo/invozo/internal/events"
	invoicedomain "github.com/invozo/invozo/internal/invoice/domain"
	"github.com/invozo/invozo/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cfg     config.Sweep
	outbox  *events.Outbox
	metrics *metrics.SweepMetrics
}

type SchedulerParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config config.Config
	Outbox *events.Outbox
}

func NewScheduler(p SchedulerParam) *Scheduler {
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler"),
		clock:   p.Clock,
		cfg:     p.Config.Sweep,
		outbox:  p.Outbox,
		metrics: metrics.Sweep(),
	}
}

// Run polls until the context is cancelled. One tick runs both sweeps.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.log.Info("sweeper started", zap.Duration("interval", s.cfg.PollInterval), zap.Int("batch_size", s.cfg.BatchSize))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if marked, err := s.SweepOverdueInvoices(ctx); err != nil {
		s.metrics.MarkError()
		s.log.Warn("overdue sweep failed", zap.Error(err))
	} else if marked > 0 {
		s.log.Info("invoices marked overdue", zap.Int("count", marked))
	}

	if marked, err := s.SweepExpiredEstimates(ctx); err != nil {
		s.metrics.MarkError()
		s.log.Warn("expiry sweep failed", zap.Error(err))
	} else if marked > 0 {
		s.log.Info("estimates marked expired", zap.Int("count", marked))
	}
}

type sweepCandidate struct {
	ID      snowflake.ID
	OrgID   snowflake.ID
	Number  string
	Status  string
	Version int64
}

// SweepOverdueInvoices flips pending and partially paid invoices past their
// due date to overdue. Each flip is a guarded update, so a concurrent
// payment always wins over the sweeper.
func (s *Scheduler) SweepOverdueInvoices(ctx context.Context) (int, error) {
	now := s.clock.Now()
	marked := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT i.id, i.org_id, i.number, i.status, i.version
			 FROM invoices i
			 JOIN organizations o ON o.id = i.org_id
			 WHERE o.auto_mark_overdue
			   AND i.status IN (?, ?)
			   AND i.due_at < ?
			 ORDER BY i.id
			 LIMIT ?` + s.lockClause()
		var candidates []sweepCandidate
		if err := tx.Raw(query,
			invoicedomain.StatusPending, invoicedomain.StatusPartiallyPaid, now, s.cfg.BatchSize,
		).Scan(&candidates).Error; err != nil {
			return err
		}

		for _, c := range candidates {
			result := tx.Exec(
				`UPDATE invoices SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND status = ?`,
				invoicedomain.StatusOverdue, now, c.ID, c.Status,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				OrgID: c.OrgID,
				Type:  events.EventInvoiceStatusSet,
				Payload: events.DocumentPayload{
					DocumentID: c.ID.String(),
					Number:     c.Number,
					FromStatus: c.Status,
					ToStatus:   string(invoicedomain.StatusOverdue),
				}.ToMap(),
				DedupeKey: "sweep.invoice.overdue:" + c.ID.String(),
			}); err != nil {
				return err
			}
			s.metrics.MarkDocument("invoice", string(invoicedomain.StatusOverdue))
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// SweepExpiredEstimates flips sent estimates whose validity window has
// elapsed to expired.
func (s *Scheduler) SweepExpiredEstimates(ctx context.Context) (int, error) {
	now := s.clock.Now()
	marked := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT e.id, e.org_id, e.number, e.status, e.version
			 FROM estimates e
			 JOIN organizations o ON o.id = e.org_id
			 WHERE o.auto_expire
			   AND e.status = ?
			   AND e.valid_until < ?
			 ORDER BY e.id
			 LIMIT ?` + s.lockClause()
		var candidates []sweepCandidate
		if err := tx.Raw(query, estimatedomain.StatusSent, now, s.cfg.BatchSize).Scan(&candidates).Error; err != nil {
			return err
		}

		for _, c := range candidates {
			result := tx.Exec(
				`UPDATE estimates SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND status = ?`,
				estimatedomain.StatusExpired, now, c.ID, c.Status,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				OrgID: c.OrgID,
				Type:  events.EventEstimateStatusSet,
				Payload: events.DocumentPayload{
					DocumentID: c.ID.String(),
					Number:     c.Number,
					FromStatus: c.Status,
					ToStatus:   string(estimatedomain.StatusExpired),
				}.ToMap(),
				DedupeKey: "sweep.estimate.expired:" + c.ID.String(),
			}); err != nil {
				return err
			}
			s.metrics.MarkDocument("estimate", string(estimatedomain.StatusExpired))
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// lockClause guards the candidate fetch against competing sweeper replicas.
// sqlite serializes writers already and rejects the syntax.
func (s *Scheduler) lockClause() string {
	if s.db.Dialector.Name() == "postgres" {
		return " FOR UPDATE SKIP LOCKED"
	}
	return ""
}
