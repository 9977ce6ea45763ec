package printqueue

import (
	"context"
	"log/slog"
	"time"

	"battrack/internal/config"
	"battrack/internal/faults"
	"battrack/internal/printer"
)

// Worker drains the queue one job at a time. Before each transmit it probes
// the device; a device that is not ready, or a retryable transmit failure,
// leaves the job at the head and the whole queue waits out the retry
// interval. A job that fails on a non-retryable condition is dropped so it
// cannot wedge the queue. A label-set job is all-or-nothing: when any label
// in the set fails, the entire set is reprinted on the next attempt.
type Worker struct {
	queue     *Queue
	prober    printer.Prober
	transport printer.Transport
	logger    *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration
	successDelay  time.Duration

	// wait is replaced in tests to avoid real sleeping.
	wait func(ctx context.Context, d time.Duration) error

	// OnStatus receives every probe result, OnDone every completed job.
	OnStatus func(printer.DeviceStatus)
	OnDone   func(Job)
}

// NewWorker wires a worker over the queue, prober, and transport using the
// queue timing configuration.
func NewWorker(queue *Queue, prober printer.Prober, transport printer.Transport, cfg config.Queue, logger *slog.Logger) *Worker {
	return &Worker{
		queue:         queue,
		prober:        prober,
		transport:     transport,
		logger:        logger,
		pollInterval:  time.Duration(cfg.PollInterval) * time.Second,
		retryInterval: time.Duration(cfg.RetryInterval) * time.Second,
		successDelay:  time.Duration(cfg.SuccessDelay) * time.Second,
		wait:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run processes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("print worker started",
		"poll_interval", w.pollInterval, "retry_interval", w.retryInterval)
	for {
		if ctx.Err() != nil {
			w.logger.Info("print worker stopped")
			return
		}
		if err := w.step(ctx); err != nil {
			return
		}
	}
}

// step handles at most one job attempt and performs the matching wait.
// Returns a non-nil error only when the context ended.
func (w *Worker) step(ctx context.Context) error {
	job, ok := w.queue.Peek()
	if !ok {
		return w.wait(ctx, w.pollInterval)
	}

	status := w.prober.Probe(ctx)
	if w.OnStatus != nil {
		w.OnStatus(status)
	}
	if !status.Ready {
		w.logger.Warn("printer not ready, holding queue",
			"status", string(status.Status), "message", status.Message,
			"job", job.ID, "queued", w.queue.Len())
		return w.wait(ctx, w.retryInterval)
	}

	if sent, err := w.transmit(ctx, job); err != nil {
		if !faults.Retryable(err) {
			if w.queue.PopIf(job.ID) {
				w.logger.Error("print job dropped",
					"job", job.ID, "kind", string(job.Kind), "error", err)
			}
			return nil
		}
		w.logger.Error("print transmit failed, job stays queued",
			"job", job.ID, "kind", string(job.Kind),
			"labels_sent", sent, "error", err)
		return w.wait(ctx, w.retryInterval)
	}

	if !w.queue.PopIf(job.ID) {
		w.logger.Warn("queue head changed during transmit", "job", job.ID)
	}
	w.logger.Info("print job done",
		"job", job.ID, "kind", string(job.Kind), "serial", job.Serial)
	if w.OnDone != nil {
		w.OnDone(job)
	}
	return w.wait(ctx, w.successDelay)
}

// transmit sends every label of the job over the transport. It names the
// labels that went out before a failure so the retry log shows how far the
// set got.
func (w *Worker) transmit(ctx context.Context, job Job) ([]string, error) {
	switch job.Kind {
	case KindCustomQR:
		if err := w.transport.Send(ctx, printer.RenderCustomQRLabel(job.Text, job.QRContent)); err != nil {
			return nil, err
		}
		return []string{"custom"}, nil
	case KindLabelSet:
		labels := []struct {
			name    string
			payload []byte
		}{
			{"identity", printer.RenderIdentityLabel(job.Serial, job.QRCode, job.FabricationDate)},
			{"main", printer.RenderMainLabel(job.Serial, job.QRCode)},
			{"shipping", printer.RenderShippingLabel(job.Serial)},
		}
		sent := make([]string, 0, len(labels))
		for _, label := range labels {
			if err := w.transport.Send(ctx, label.payload); err != nil {
				return sent, err
			}
			sent = append(sent, label.name)
		}
		return sent, nil
	default:
		return nil, faults.Wrap(faults.ErrValidation, "printqueue", "transmit",
			"unknown job kind "+string(job.Kind), nil)
	}
}
