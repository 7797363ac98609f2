package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// refreshTimeout bounds a single scheduled aggregation.
const refreshTimeout = 30 * time.Second

// Publisher receives every fresh summary.
type Publisher interface {
	PublishStats(result StatsResult)
}

// Refresher recomputes the summary on a cron schedule and keeps the latest
// snapshot.
type Refresher struct {
	agg       *Aggregator
	schedule  string
	publisher Publisher
	cron      *cron.Cron
	logger    zerolog.Logger

	mu        sync.Mutex
	running   bool
	seq       uint64
	latest    *StatsResult
	latestSeq uint64
}

// NewRefresher creates a refresher. publisher may be nil.
func NewRefresher(agg *Aggregator, schedule string, publisher Publisher, logger zerolog.Logger) *Refresher {
	return &Refresher{
		agg:       agg,
		schedule:  schedule,
		publisher: publisher,
		cron:      cron.New(),
		logger:    logger.With().Str("component", "stats_refresher").Logger(),
	}
}

// Start registers the schedule and computes a first snapshot.
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("stats refresher already running")
	}

	if _, err := r.cron.AddFunc(r.schedule, r.refresh); err != nil {
		return err
	}

	go r.refresh()
	r.cron.Start()
	r.running = true

	r.logger.Info().Str("schedule", r.schedule).Msg("stats refresher started")
	return nil
}

// Stop stops the scheduler. The returned context is done once a running
// refresh has finished.
func (r *Refresher) Stop() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	r.running = false
	r.logger.Info().Msg("stopping stats refresher")
	return r.cron.Stop()
}

// Latest returns the most recent snapshot, if one has been computed.
func (r *Refresher) Latest() (StatsResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return StatsResult{}, false
	}
	return *r.latest, true
}

// RunNow computes and publishes a snapshot immediately.
func (r *Refresher) RunNow() StatsResult {
	return r.run()
}

func (r *Refresher) refresh() {
	r.run()
}

func (r *Refresher) run() StatsResult {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	result := r.agg.Stats(ctx)

	if !r.store(seq, result) {
		r.logger.Debug().Uint64("run", seq).Msg("discarding stats overtaken by a newer run")
		return result
	}
	if r.publisher != nil {
		r.publisher.PublishStats(result)
	}

	r.logger.Debug().
		Bool("mock", result.IsMockData).
		Strs("failed", result.Failed).
		Msg("dashboard stats refreshed")
	return result
}

// store keeps result unless a run that started later has already stored
// its own.
func (r *Refresher) store(seq uint64, result StatsResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.latestSeq {
		return false
	}
	r.latest = &result
	r.latestSeq = seq
	return true
}
