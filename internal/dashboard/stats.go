package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/rs/zerolog"
)

// Source provides the figures the summary is built from.
type Source interface {
	CountCustomers(ctx context.Context) (int, error)
	CountAccounts(ctx context.Context) (int, error)
	CountCards(ctx context.Context) (int, error)
	CountTransactions(ctx context.Context) (int, error)
	Balances(ctx context.Context) ([]railsr.CurrencyBalance, error)
}

// Recorder receives aggregation telemetry.
type Recorder interface {
	IncFallback(reason string)
	SetBalance(currency string, value float64)
}

// StatsResult is the response of the stats endpoint. IsMockData is set when
// the whole summary is the fixed dataset; Failed lists the sources that
// contributed zero because their call failed.
type StatsResult struct {
	Success    bool      `json:"success"`
	Data       Stats     `json:"data"`
	IsMockData bool      `json:"isMockData"`
	Failed     []string  `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AggregatorConfig controls when the mock dataset is used.
type AggregatorConfig struct {
	// Configured is false when upstream credentials are missing.
	Configured  bool
	UseMockData bool
	Recorder    Recorder
}

// Aggregator builds the dashboard summary.
type Aggregator struct {
	source   Source
	cfg      AggregatorConfig
	fallback Fallback[summary]
	logger   zerolog.Logger
}

type summary struct {
	stats  Stats
	failed []string
}

// NewAggregator creates an Aggregator over source.
func NewAggregator(source Source, cfg AggregatorConfig, logger zerolog.Logger) *Aggregator {
	a := &Aggregator{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "dashboard_stats").Logger(),
	}
	a.fallback = Fallback[summary]{
		Value:     func() summary { return summary{stats: MockStats()} },
		Available: a.live,
		OnDegrade: a.onDegrade,
	}
	return a
}

func (a *Aggregator) live() bool {
	return a.cfg.Configured && !a.cfg.UseMockData
}

func (a *Aggregator) onDegrade(reason Reason, err error) {
	if a.cfg.Recorder != nil {
		a.cfg.Recorder.IncFallback(string(reason))
	}
	if err != nil {
		a.logger.Error().Err(err).Str("reason", string(reason)).Msg("dashboard stats fell back to mock data")
		return
	}
	a.logger.Debug().Msg("serving mock dashboard stats")
}

// Stats returns the dashboard summary. It never fails: missing credentials,
// the mock flag, or a failure of the aggregation itself yield the mock
// dataset with IsMockData set.
func (a *Aggregator) Stats(ctx context.Context) StatsResult {
	res := a.fallback.Run(ctx, a.collect)

	out := StatsResult{
		Success:    true,
		Data:       res.Data.stats,
		IsMockData: res.Degraded,
		Failed:     res.Data.failed,
		UpdatedAt:  time.Now().UTC(),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	if a.cfg.Recorder != nil {
		for cur, v := range out.Data.TotalBalance {
			a.cfg.Recorder.SetBalance(cur, v)
		}
	}
	return out
}

// collect issues all five calls concurrently and waits for every one of
// them. A failed call contributes zero and is listed in summary.failed.
func (a *Aggregator) collect(ctx context.Context) (summary, error) {
	if err := ctx.Err(); err != nil {
		return summary{}, fmt.Errorf("dashboard: %w", err)
	}

	stats := emptyStats()
	counts := []struct {
		name  string
		count func(context.Context) (int, error)
		dst   *int
	}{
		{"customers", a.source.CountCustomers, &stats.Customers},
		{"accounts", a.source.CountAccounts, &stats.Accounts},
		{"cards", a.source.CountCards, &stats.Cards},
		{"transactions", a.source.CountTransactions, &stats.Transactions},
	}

	errs := make([]error, len(counts)+1)
	var balances []railsr.CurrencyBalance

	var wg sync.WaitGroup
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = guard(func() error {
				n, err := counts[i].count(ctx)
				if err != nil {
					return err
				}
				*counts[i].dst = n
				return nil
			})
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[len(counts)] = guard(func() error {
			var err error
			balances, err = a.source.Balances(ctx)
			return err
		})
	}()
	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err == nil {
			continue
		}
		name := "balances"
		if i < len(counts) {
			name = counts[i].name
		}
		failed = append(failed, name)
		a.logger.Warn().Err(err).Str("source", name).Msg("dashboard source failed, counting as zero")
	}

	applyBalances(&stats, balances)
	return summary{stats: stats, failed: failed}, nil
}

// applyBalances copies the balance of each tracked currency into stats.
// A currency reported more than once keeps the last value; untracked
// currencies are ignored.
func applyBalances(stats *Stats, balances []railsr.CurrencyBalance) {
	for _, b := range balances {
		if _, tracked := stats.TotalBalance[b.Currency]; tracked {
			stats.TotalBalance[b.Currency] = b.Value()
		}
	}
}

// guard turns a panic inside fn into an error so one bad source cannot take
// down the process.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dashboard: recovered panic: %v", r)
		}
	}()
	return fn()
}

var countPage = railsr.PageRequest{Page: 1, PerPage: 1}

// ClientSource reads the summary figures from the upstream API. Counts are
// the meta.pagination total of a one-item page, zero when upstream omits it.
type ClientSource struct {
	clients *railsr.Clients
}

func NewClientSource(clients *railsr.Clients) *ClientSource {
	return &ClientSource{clients: clients}
}

func (s *ClientSource) CountCustomers(ctx context.Context) (int, error) {
	page, err := s.clients.Customers.List(ctx, countPage)
	if err != nil {
		return 0, err
	}
	return reportedTotal(page), nil
}

func (s *ClientSource) CountAccounts(ctx context.Context) (int, error) {
	page, err := s.clients.Accounts.ListAll(ctx, countPage)
	if err != nil {
		return 0, err
	}
	return reportedTotal(page), nil
}

func (s *ClientSource) CountCards(ctx context.Context) (int, error) {
	page, err := s.clients.Cards.ListAll(ctx, countPage, "")
	if err != nil {
		return 0, err
	}
	return reportedTotal(page), nil
}

func (s *ClientSource) CountTransactions(ctx context.Context) (int, error) {
	page, err := s.clients.Transactions.ListAll(ctx, countPage)
	if err != nil {
		return 0, err
	}
	return reportedTotal(page), nil
}

func reportedTotal[T any](page *railsr.Page[T]) int {
	if page == nil || !page.Paginated {
		return 0
	}
	return page.Total
}

func (s *ClientSource) Balances(ctx context.Context) ([]railsr.CurrencyBalance, error) {
	return s.clients.Accounts.Balances(ctx)
}
