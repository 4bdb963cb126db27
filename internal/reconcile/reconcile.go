// Package reconcile finishes document deletions that were interrupted after
// the soft delete, and prunes expired rate-limit windows.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"docshare/internal/repository"
	"docshare/internal/storage"
)

const (
	DefaultSchedule  = "*/10 * * * *"
	DefaultBatchSize = 100
	runTimeout       = 5 * time.Minute
)

// Pruner drops expired rate-limit windows. The Redis backend expires keys on
// its own and needs no pruner.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result summarizes one pass.
type Result struct {
	Purged int
	Failed int
	Pruned int64
}

type Reconciler struct {
	docs  repository.DocumentRepository
	store storage.Storage
	prune Pruner
	batch int
	log   logrus.FieldLogger
	now   func() time.Time

	mu    sync.Mutex
	sched *gocron.Scheduler
}

func New(docs repository.DocumentRepository, store storage.Storage, prune Pruner, batch int, log logrus.FieldLogger) *Reconciler {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Reconciler{
		docs:  docs,
		store: store,
		prune: prune,
		batch: batch,
		log:   log.WithField("component", "reconcile"),
		now:   time.Now,
	}
}

// RunOnce removes the stored object and then the row of up to one batch of
// soft-deleted documents. A document that fails either step is retried on
// the next pass.
func (r *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	docs, err := r.docs.ListDeleted(ctx, r.batch)
	if err != nil {
		return res, fmt.Errorf("list deleted: %w", err)
	}
	for _, d := range docs {
		entry := r.log.WithField("document_id", d.ID)
		if err := r.store.Delete(ctx, d.StoragePath); err != nil {
			entry.WithError(err).Warn("storage delete failed")
			res.Failed++
			continue
		}
		if err := r.docs.Delete(ctx, d.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			entry.WithError(err).Warn("row delete failed")
			res.Failed++
			continue
		}
		res.Purged++
	}

	if r.prune != nil {
		n, err := r.prune.Prune(ctx, r.now().UTC())
		if err != nil {
			return res, fmt.Errorf("prune rate limits: %w", err)
		}
		res.Pruned = n
	}
	return res, nil
}

// Start runs RunOnce on a cron schedule until Stop. Overlapping runs are skipped.
func (r *Reconciler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched != nil {
		return errors.New("reconciler already started")
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Cron(schedule).Tag("reconcile").Do(r.tick); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	s.StartAsync()
	r.sched = s
	r.log.WithField("schedule", schedule).Info("reconciler started")
	return nil
}

func (r *Reconciler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	res, err := r.RunOnce(ctx)
	fields := logrus.Fields{
		"purged":      res.Purged,
		"failed":      res.Failed,
		"pruned":      res.Pruned,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		r.log.WithFields(fields).WithError(err).Error("reconcile failed")
		return
	}
	if res.Purged > 0 || res.Failed > 0 || res.Pruned > 0 {
		r.log.WithFields(fields).Info("reconcile done")
	}
}

func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sched == nil {
		return
	}
	r.sched.Stop()
	r.sched = nil
	r.log.Info("reconciler stopped")
}
