package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"blocksync/internal/config"
	"blocksync/internal/reconciler"
	"blocksync/pkg/logging"
)

// statusInterval is how often watch mode logs a summary line.
const statusInterval = time.Minute

// newManager builds a sync manager for every configured feed.
func newManager(settings *config.Config, syncer reconciler.FeedSyncer) (*reconciler.Manager, error) {
	w := settings.Watch
	manager := reconciler.NewManager(reconciler.ManagerConfig{
		WorkerCount:      1,
		MaxRetries:       w.MaxRetries,
		InitialBackoff:   w.InitialBackoff,
		MaxBackoff:       w.MaxBackoff,
		DebounceInterval: w.DebounceInterval,
		ResyncInterval:   w.ResyncInterval,
	}, syncer)

	for _, def := range settings.Feeds {
		if err := manager.RegisterFeed(def.Name, def.File); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// WatchReport is the manager state at the end of watch mode.
type WatchReport struct {
	Statuses []reconciler.SyncStatus
	Metrics  reconciler.SyncMetricsSummary
}

// runWatchMode runs the sync manager until ctx ends or a signal arrives.
//
// Under systemd (Type=notify) READY=1 is sent once the initial passes are
// queued and STOPPING=1 when shutdown begins. Outside systemd the
// notifications are no-ops.
func runWatchMode(ctx context.Context, settings *config.Config, services *Services) (*WatchReport, error) {
	if len(settings.Feeds) == 0 {
		return nil, errors.New("no feeds configured")
	}

	manager, err := newManager(settings, services.Syncer)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		logging.Error("Watch", err, "Failed to start sync manager")
		return nil, err
	}
	notify(daemon.SdNotifyReady)
	logging.Info("Watch", "Watching %d feeds. Press Ctrl+C to stop.", len(settings.Feeds))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logStatus(manager)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Watch", "Shutting down")
		notify(daemon.SdNotifyStopping)
		if err := manager.Stop(); err != nil {
			return fmt.Errorf("failed to stop sync manager: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logStatus(manager)
	return &WatchReport{
		Statuses: manager.GetAllStatuses(),
		Metrics:  manager.Metrics().GetSummary(),
	}, err
}

func logStatus(manager *reconciler.Manager) {
	summary := manager.Metrics().GetSummary()
	logging.Info("Watch", "%d feeds, %d passes, %d failures, queue length %d",
		len(manager.Feeds()), summary.TotalAttempts, summary.TotalFailures, manager.GetQueueLength())

	for _, status := range manager.GetAllStatuses() {
		if status.State == reconciler.StateFailed {
			logging.Warn("Watch", "Feed %s gave up: %s", status.Feed, status.LastError)
		}
	}
}

func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Watch", "Failed to notify systemd: %v", err)
		return
	}
	if sent {
		logging.Debug("Watch", "Notified systemd: %s", state)
	}
}
