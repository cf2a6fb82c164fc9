package health

import (
	"context"
	"sync"
	"time"
)

type component struct {
	name     string
	pinger   Pinger
	required bool
}

// Monitor aggregates health status from the service dependencies.
type Monitor struct {
	components []component
	minCheck   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. Results are cached for minCheck.
func NewMonitor(minCheck time.Duration) *Monitor {
	return &Monitor{minCheck: minCheck}
}

// Register adds a dependency. A failing required dependency makes the
// system critical; an optional one only degrades it.
func (m *Monitor) Register(name string, p Pinger, required bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, pinger: p, required: required})
	m.lastCheck = time.Time{}
}

// CheckHealth pings every registered dependency.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering the database
	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.minCheck {
		return m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.components)),
	}

	for _, c := range m.components {
		h := ComponentHealth{Name: c.name, Status: StatusHealthy, Required: c.required}

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.pinger.Ping(pingCtx)
		cancel()

		if err != nil {
			h.Error = err.Error()
			h.Status = StatusDegraded
			if c.required {
				h.Status = StatusCritical
			}
		}
		report.Components[c.name] = h

		// Worst case wins
		if h.Status == StatusCritical {
			report.SystemStatus = StatusCritical
		} else if h.Status == StatusDegraded && report.SystemStatus == StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
