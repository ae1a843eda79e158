package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/rs/zerolog"
)

// joinTimeout bounds how long stop waits for the sampling goroutine. It
// also bounds the worker pool wait during Shutdown. Variable so tests can
// shorten it.
var joinTimeout = 5 * time.Second

// scheduler owns the single background goroutine that drives all sampling.
// It is Idle until the first armed device and returns to Idle on a global
// stop; per-device Stop never touches it.
type scheduler struct {
	monitor *Monitor
	logger  zerolog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	shutdown bool
}

func newScheduler(m *Monitor, logger zerolog.Logger) *scheduler {
	return &scheduler{monitor: m, logger: logger}
}

// ensureRunning transitions Idle -> Running exactly once per idle period.
func (s *scheduler) ensureRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown || s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.logger.Info().Msg("Sampling scheduler started")
}

// stop signals the loop and joins it with a bounded wait. On timeout the
// goroutine is abandoned and ErrShutdownTimeout reported.
func (s *scheduler) stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		s.logger.Info().Msg("Sampling scheduler stopped")
		return nil
	case <-time.After(joinTimeout):
		s.logger.Warn().Dur("timeout", joinTimeout).Msg("Scheduler did not stop in time, proceeding")
		return ErrShutdownTimeout
	}
}

func (s *scheduler) markShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.shutdown = true
	return true
}

func (s *scheduler) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// run is the sampling loop. Cancellation is observed between ticks, so a
// global stop takes effect within one tick interval.
func (s *scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.monitor.cfg.Monitor.UpdateInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// tick samples every armed device once. Devices fan out over the worker
// pool; within one device, stats are committed before alerts are evaluated.
// Cross-device order is unspecified.
func (s *scheduler) tick(ctx context.Context) {
	active := s.monitor.registry.ActiveDevices()

	var wg sync.WaitGroup
	for _, deviceID := range active {
		wg.Add(1)
		submitted := s.monitor.workerPool.Submit(ctx, func() {
			defer wg.Done()
			s.sampleDevice(ctx, deviceID)
		})
		if !submitted {
			wg.Done()
		}
	}
	wg.Wait()

	s.monitor.obs.Tick()
}

// sampleDevice pulls one tick's worth of samples for a device, commits them
// and evaluates alerts. The source, notification sink and log sink are all
// invoked without holding any internal lock. A failed sample skips only that
// metric for this tick; monitoring continues.
func (s *scheduler) sampleDevice(ctx context.Context, deviceID string) {
	m := s.monitor

	samples := make(map[models.MetricKind]float64, models.MetricCount)
	for _, metric := range models.AllMetrics {
		if !m.cfg.Monitor.Metrics.Enabled(metric) {
			continue
		}
		value, err := m.source.Sample(ctx, deviceID, metric)
		if err != nil {
			m.obs.SampleFailure()
			m.noteSourceFailure(deviceID)
			s.logger.Debug().Err(err).Str("device_id", deviceID).Str("metric", metric.Name()).
				Msg("Sample failed, skipping metric for this tick")
			continue
		}
		samples[metric] = value
	}

	snapshot, err := m.registry.Commit(deviceID, samples, time.Now().UTC())
	if err != nil {
		// Device was removed mid-tick.
		return
	}

	raised := m.engine.Evaluate(snapshot, m.cfg.Monitor.Metrics)
	var warnings, criticals uint32
	for _, alert := range raised {
		if alert.IsCritical {
			criticals++
		} else {
			warnings++
		}
		// The device counters track raised alerts even when the bounded
		// store rejects the record, matching the legacy tallies.
		if err := m.engine.Record(alert); err != nil {
			s.logger.Debug().Err(err).Str("device_id", deviceID).Msg("Alert not stored")
		}
	}
	if warnings > 0 || criticals > 0 {
		m.registry.RecordAlertCounts(deviceID, warnings, criticals)
	}

	if m.cfg.Log.Enabled && m.logSink != nil {
		if err := m.logSink.Append(snapshot); err != nil {
			s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to append to log sink")
		}
	}
}
