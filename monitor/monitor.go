package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/bkio/crosscloudkit/fileservice"
	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/pubsub"
)

const (
	pollInterval   = 3 * time.Second
	failureBackoff = 1 * time.Second
	scanMutexTTL   = 5 * time.Minute
	scanMutexName  = "lock"
	maxConsecutiveFailures = 10
)

// ErrorHandler receives each pass failure the worker tolerates before
// giving up.
type ErrorHandler func(err error)

// MonitorBasedPubSub is the differential file-state scanner. One instance
// owns one background worker; multiple instances sharing the same memory
// backend coordinate via the scan mutex rather than via in-process state.
type MonitorBasedPubSub struct {
	mem    memory.Service
	pubsub pubsub.Service
	files  fileservice.Service
	logger logging.Logger
	config *Config

	onError ErrorHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a MonitorBasedPubSub over the three services it scans and
// publishes against. Call Start to launch the background worker; the
// registrar methods (CreateNotification, DeleteNotifications,
// CleanupBucket) work without Start, since they only touch the config
// registry and baseline snapshots. A nil config falls back to a fixed 3s
// scan cadence.
func New(mem memory.Service, ps pubsub.Service, files fileservice.Service, logger logging.Logger, config *Config, onError ErrorHandler) *MonitorBasedPubSub {
	return &MonitorBasedPubSub{
		mem:     mem,
		pubsub:  ps,
		files:   files,
		logger:  logging.OrNop(logger),
		config:  config,
		onError: onError,
	}
}

func (m *MonitorBasedPubSub) newScanMutex() *memory.ScopedMutex {
	return memory.NewScopedMutex(m.mem, memory.StringScope(memory.SystemScopeScanDispatchMutex), scanMutexName, scanMutexTTL, m.logger)
}

// Start launches the single long-lived worker task. Calling Start twice
// without an intervening Stop leaks the first worker; callers own that
// discipline.
func (m *MonitorBasedPubSub) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop signals the worker to exit and waits for it to do so. Safe to call
// even if Start was never called.
func (m *MonitorBasedPubSub) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
}

func (m *MonitorBasedPubSub) loop(ctx context.Context) {
	defer m.wg.Done()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.sleepDuration(consecutiveFailures)):
		}

		if ctx.Err() != nil {
			return
		}

		if err := m.scanPass(ctx); err != nil {
			consecutiveFailures++
			m.reportError(err)
			if consecutiveFailures >= maxConsecutiveFailures {
				m.logger.Error("monitor worker terminating after consecutive scan failures", "count", consecutiveFailures)
				return
			}
			continue
		}
		consecutiveFailures = 0
	}
}

func (m *MonitorBasedPubSub) sleepDuration(consecutiveFailures int) time.Duration {
	if consecutiveFailures > 0 {
		return failureBackoff
	}
	return m.config.nextDelay(time.Now())
}

func (m *MonitorBasedPubSub) reportError(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}
