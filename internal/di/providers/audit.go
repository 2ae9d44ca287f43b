package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/sse"
)

// recentEventsLimit bounds the in-memory audit view used without a journal.
const recentEventsLimit = 1000

// SSEManagerHandle wraps the live event stream manager with its context for
// lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Manager.Shutdown(ctx)
	h.cancel()
	return err
}

// ProvideSSEManager provides the manager behind GET /api/v1/admin/events.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.WithComponent("sse").Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// AuditHandle owns the audit notifier and the sink that answers audit queries.
type AuditHandle struct {
	*audit.Notifier
	Reader  audit.Reader
	journal *audit.Journal
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable. Queued events are flushed before the
// journal closes.
func (h *AuditHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Notifier.Shutdown(ctx)
	h.cancel()
	if h.journal != nil {
		if cerr := h.journal.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ProvideAudit starts the audit pipeline. Every event is logged; with the
// journal enabled it is also persisted to Badger, otherwise the most recent
// events are kept in memory. Connected stream clients see events live.
func ProvideAudit(i do.Injector) (*AuditHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	stream := do.MustInvoke[*SSEManagerHandle](i)

	sinks := []audit.Sink{
		audit.NewLogSink(log.WithComponent("audit").Logger),
		stream.Manager,
	}
	handle := &AuditHandle{}

	if cfg.Audit.Journal {
		if err := os.MkdirAll(cfg.Audit.JournalPath, 0o750); err != nil {
			return nil, fmt.Errorf("create audit journal directory: %w", err)
		}
		journal, err := audit.OpenJournal(cfg.Audit.JournalPath, log.Logger)
		if err != nil {
			return nil, err
		}
		handle.journal = journal
		handle.Reader = journal
		sinks = append(sinks, journal)
	} else {
		mem := audit.NewMemorySink(recentEventsLimit)
		handle.Reader = mem
		sinks = append(sinks, mem)
		log.Info("Audit journal disabled; keeping recent events in memory", "limit", recentEventsLimit)
	}

	handle.Notifier = audit.NewNotifier(log.Logger, cfg.Audit.QueueSize, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	handle.cancel = cancel
	go handle.Start(ctx)

	log.Info("Audit pipeline started", "queue_size", cfg.Audit.QueueSize, "journal", cfg.Audit.Journal)

	return handle, nil
}
