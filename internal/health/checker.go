package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HealthStatus represents the overall health status of the server.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
	StatusUnknown  HealthStatus = "unknown"
)

// Thresholds defines the thresholds for host health evaluation.
type Thresholds struct {
	MemoryWarning  float64 // Default: 85%
	MemoryCritical float64 // Default: 95%
	CPUWarning     float64 // Default: 80%
	CPUCritical    float64 // Default: 95%
}

// DefaultThresholds returns the default health thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemoryWarning:  85.0,
		MemoryCritical: 95.0,
		CPUWarning:     80.0,
		CPUCritical:    95.0,
	}
}

// Issue represents a specific health issue.
type Issue struct {
	Component string       `json:"component"` // cpu, memory, upstream
	Severity  HealthStatus `json:"severity"`
	Message   string       `json:"message"`
	Value     float64      `json:"value,omitempty"`
	Threshold float64      `json:"threshold,omitempty"`
}

// UpstreamStatus is the last known connectivity to the upstream API.
type UpstreamStatus struct {
	Configured    bool      `json:"configured"`
	MockData      bool      `json:"mock_data"`
	Reachable     bool      `json:"reachable"`
	Error         string    `json:"error,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at,omitempty"`
}

// Report is the body of the health endpoint.
type Report struct {
	Status    HealthStatus   `json:"status"`
	Message   string         `json:"message"`
	Issues    []Issue        `json:"issues,omitempty"`
	Host      *Metrics       `json:"host,omitempty"`
	Upstream  UpstreamStatus `json:"upstream"`
	CheckedAt time.Time      `json:"checked_at"`
}

// Checker evaluates health from host metrics and upstream state.
type Checker struct {
	thresholds Thresholds
}

// NewChecker creates a new health checker with the given thresholds.
func NewChecker(thresholds Thresholds) *Checker {
	return &Checker{thresholds: thresholds}
}

// Evaluate builds a report from host metrics and upstream state. Upstream
// problems are warnings only since the dashboard keeps serving mock data.
func (c *Checker) Evaluate(m *Metrics, up UpstreamStatus) *Report {
	r := &Report{
		Host:      m,
		Upstream:  up,
		CheckedAt: time.Now(),
		Issues:    make([]Issue, 0),
	}

	if m != nil {
		r.Issues = appendThreshold(r.Issues, "memory", m.MemoryUsage, c.thresholds.MemoryWarning, c.thresholds.MemoryCritical)
		r.Issues = appendThreshold(r.Issues, "cpu", m.CPUUsage, c.thresholds.CPUWarning, c.thresholds.CPUCritical)
	}

	switch {
	case up.MockData:
		// mock mode never calls upstream
	case !up.Configured:
		r.Issues = append(r.Issues, Issue{
			Component: "upstream",
			Severity:  StatusWarning,
			Message:   "Upstream credentials not configured, serving mock data",
		})
	case !up.LastCheckedAt.IsZero() && !up.Reachable:
		r.Issues = append(r.Issues, Issue{
			Component: "upstream",
			Severity:  StatusWarning,
			Message:   "Upstream API unreachable",
		})
	}

	r.Status = overallStatus(r.Issues)
	if m == nil && len(r.Issues) == 0 {
		r.Status = StatusUnknown
	}
	r.Message = statusMessage(r.Status)
	return r
}

func appendThreshold(issues []Issue, component string, value, warning, critical float64) []Issue {
	switch {
	case critical > 0 && value >= critical:
		return append(issues, Issue{
			Component: component,
			Severity:  StatusCritical,
			Message:   component + " usage critically high",
			Value:     value,
			Threshold: critical,
		})
	case warning > 0 && value >= warning:
		return append(issues, Issue{
			Component: component,
			Severity:  StatusWarning,
			Message:   component + " usage high",
			Value:     value,
			Threshold: warning,
		})
	}
	return issues
}

func overallStatus(issues []Issue) HealthStatus {
	status := StatusHealthy
	for _, issue := range issues {
		switch issue.Severity {
		case StatusCritical:
			return StatusCritical
		case StatusWarning:
			status = StatusWarning
		}
	}
	return status
}

func statusMessage(status HealthStatus) string {
	switch status {
	case StatusHealthy:
		return "All systems operational"
	case StatusWarning:
		return "Some checks require attention"
	case StatusCritical:
		return "Critical issues detected"
	default:
		return "Health status unknown"
	}
}

// Pinger checks connectivity to the upstream API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Configured bool
	MockData   bool
	// PingTTL is how long an upstream ping result is reused. Default 30s.
	PingTTL    time.Duration
	Thresholds Thresholds
}

// Service produces health reports, caching upstream pings.
type Service struct {
	collector *Collector
	checker   *Checker
	pinger    Pinger
	cfg       ServiceConfig
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	upstream UpstreamStatus
}

// NewService creates a health service. pinger may be nil.
func NewService(cfg ServiceConfig, pinger Pinger, logger zerolog.Logger) *Service {
	if cfg.PingTTL <= 0 {
		cfg.PingTTL = 30 * time.Second
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Service{
		collector: NewCollector(),
		checker:   NewChecker(cfg.Thresholds),
		pinger:    pinger,
		cfg:       cfg,
		logger:    logger.With().Str("component", "health").Logger(),
		now:       time.Now,
		upstream:  UpstreamStatus{Configured: cfg.Configured, MockData: cfg.MockData},
	}
}

// Check collects host metrics, refreshes the upstream state when stale and
// evaluates the result.
func (s *Service) Check(ctx context.Context) *Report {
	m, err := s.collector.Collect(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("host metrics incomplete")
	}
	return s.checker.Evaluate(m, s.Upstream(ctx))
}

// Upstream returns the cached upstream state, pinging when it is older than
// the TTL.
func (s *Service) Upstream(ctx context.Context) UpstreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pinger == nil || s.cfg.MockData || !s.cfg.Configured {
		return s.upstream
	}
	now := s.now()
	if !s.upstream.LastCheckedAt.IsZero() && now.Sub(s.upstream.LastCheckedAt) < s.cfg.PingTTL {
		return s.upstream
	}

	err := s.pinger.Ping(ctx)
	s.upstream.LastCheckedAt = now
	s.upstream.Reachable = err == nil
	s.upstream.Error = ""
	if err != nil {
		s.upstream.Error = err.Error()
		s.logger.Warn().Err(err).Msg("upstream ping failed")
	}
	return s.upstream
}
