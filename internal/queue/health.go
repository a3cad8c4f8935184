package queue

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthMonitor tracks whether the Redis broker behind a queue is usable.
// Dispatchers consult it before enqueueing and fall back to synchronous
// processing when the broker is down. A single probe failure is final
// until the next Probe call; there is no automatic reconnect.
type HealthMonitor struct {
	mu        sync.RWMutex
	available bool
	client    *redis.Client
	queue     *Queue

	queueName    string
	probeTimeout time.Duration
	log          *zap.Logger
}

// NewHealthMonitor builds a monitor that starts unavailable. Call Probe
// to attach a broker.
func NewHealthMonitor(queueName string, probeTimeout time.Duration, log *zap.Logger) *HealthMonitor {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &HealthMonitor{
		queueName:    queueName,
		probeTimeout: probeTimeout,
		log:          log,
	}
}

// Probe pings the broker once with a short timeout and records the
// outcome. It never blocks beyond the timeout and never returns an
// error; an unreachable broker just leaves the monitor unavailable.
func (m *HealthMonitor) Probe(ctx context.Context, client *redis.Client) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	if err := client.Ping(probeCtx).Err(); err != nil {
		m.log.Warn("broker unreachable, queueing disabled",
			zap.String("queue", m.queueName),
			zap.Error(err),
		)
		m.markUnavailable()
		return
	}

	m.mu.Lock()
	m.available = true
	m.client = client
	m.queue = New(m.queueName, client, m.log)
	m.mu.Unlock()

	m.log.Info("broker reachable, queueing enabled", zap.String("queue", m.queueName))
}

// IsAvailable reports whether the broker can currently be used.
func (m *HealthMonitor) IsAvailable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// Queue returns the queue handle, or nil when the broker is unavailable.
func (m *HealthMonitor) Queue() *Queue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.available {
		return nil
	}
	return m.queue
}

// Client returns the broker client, or nil when the broker is unavailable.
func (m *HealthMonitor) Client() *redis.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.available {
		return nil
	}
	return m.client
}

// ReportError flips the monitor to unavailable after a broker operation
// failed at runtime, so later dispatches go straight to the fallback.
func (m *HealthMonitor) ReportError(err error) {
	m.log.Warn("broker error reported, queueing disabled",
		zap.String("queue", m.queueName),
		zap.Error(err),
	)
	m.markUnavailable()
}

func (m *HealthMonitor) markUnavailable() {
	m.mu.Lock()
	m.available = false
	m.client = nil
	m.queue = nil
	m.mu.Unlock()
}
