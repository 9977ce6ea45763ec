package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"battrack/internal/bus"
	"battrack/internal/config"
	"battrack/internal/faults"
	"battrack/internal/ledger"
	"battrack/internal/printer"
	"battrack/internal/printqueue"
	"battrack/internal/router"
)

// Daemon wires the ledger, the print queue worker, and the bus router into
// one long-running process. At most one instance runs per data directory,
// enforced by a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store  *ledger.Store
	queue  *printqueue.Queue
	worker *printqueue.Worker
	prober printer.Prober
	topics bus.Topics
	lock   *flock.Flock

	// newBus is replaced in tests to avoid a live broker.
	newBus func(ctx context.Context) (bus.Bus, error)
}

func New(cfg *config.Config, version string, logger *slog.Logger) (*Daemon, error) {
	transport, err := printer.NewTransport(cfg.Printer)
	if err != nil {
		return nil, err
	}

	store := ledger.NewStore(cfg, version, logger.With("component", "ledger"))
	queue := printqueue.NewQueue()
	prober := printer.NewProber(transport, cfg.Printer, logger.With("component", "prober"))
	worker := printqueue.NewWorker(queue, prober, transport, cfg.Queue, logger.With("component", "worker"))

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		store:  store,
		queue:  queue,
		worker: worker,
		prober: prober,
		topics: bus.NewTopics(cfg.Bus.TopicPrefix),
		lock:   flock.New(cfg.LockPath()),
	}
	d.newBus = func(ctx context.Context) (bus.Bus, error) {
		return bus.NewRedisBus(ctx, cfg.Bus, logger.With("component", "bus"))
	}
	return d, nil
}

// Run starts the daemon and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return faults.Wrap(faults.ErrTransient, "daemon", "run", "acquire instance lock", err)
	}
	if !locked {
		return faults.Wrap(faults.ErrValidation, "daemon", "run",
			"another instance holds "+d.cfg.LockPath(), nil)
	}
	defer d.lock.Unlock()

	if err := d.store.EnsureFiles(); err != nil {
		return err
	}

	b, err := d.newBus(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	rt := router.New(d.store, d.queue, b, d.topics, d.cfg, d.logger.With("component", "router"))
	if err := b.Subscribe(ctx, d.topics.Commands(), rt.Handle); err != nil {
		return err
	}

	d.worker.OnStatus = func(status printer.DeviceStatus) {
		d.publishStatus(ctx, b, status)
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		d.worker.Run(workerCtx)
	}()

	statusDone := make(chan struct{})
	go func() {
		defer close(statusDone)
		d.statusLoop(ctx, b)
	}()

	d.logger.Info("daemon running",
		"data_dir", d.cfg.Paths.DataDir,
		"topics", d.topics.Commands(),
		"transport", d.cfg.Printer.Transport)

	<-ctx.Done()
	d.logger.Info("shutting down")

	stopWorker()
	<-workerDone
	<-statusDone

	// Best-effort parting status so consumers see the device as gone.
	off := context.Background()
	if err := b.Publish(off, d.topics.Status(), []byte("off"), true); err != nil {
		d.logger.Warn("parting status publish failed", "error", err)
	}
	return nil
}

// statusLoop probes the device on the configured interval and republishes
// the retained status topics, so consumers see readiness changes even when
// the queue is empty.
func (d *Daemon) statusLoop(ctx context.Context, b bus.Bus) {
	interval := time.Duration(d.cfg.Bus.StatusInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.publishStatus(ctx, b, d.prober.Probe(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.publishStatus(ctx, b, d.prober.Probe(ctx))
		}
	}
}

func (d *Daemon) publishStatus(ctx context.Context, b bus.Bus, status printer.DeviceStatus) {
	simple := "off"
	if status.Ready {
		simple = "on"
	}
	if err := b.Publish(ctx, d.topics.Status(), []byte(simple), true); err != nil {
		d.logger.Warn("status publish failed", "error", err)
		return
	}

	detailed := bus.DetailedStatus{
		Status:    string(status.Status),
		Message:   status.Message,
		Ready:     status.Ready,
		Timestamp: ledger.Timestamp(time.Now()),
	}
	payload, err := json.Marshal(detailed)
	if err != nil {
		d.logger.Error("marshal detailed status", "error", err)
		return
	}
	if err := b.Publish(ctx, d.topics.DetailedStatus(), payload, true); err != nil {
		d.logger.Warn("detailed status publish failed", "error", err)
	}
}
