package printer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"syscall"
	"time"

	"battrack/internal/config"
)

// statusRequest asks the device for its host query error status.
var statusRequest = []byte("~HQES\r\n")

// Prober reports the device's current readiness.
type Prober interface {
	Probe(ctx context.Context) DeviceStatus
}

// DeviceProber queries the printer over its transport. Connection attempts
// that fail with an unreachable network are retried with a fixed backoff;
// every other failure is reported immediately as a communication error.
type DeviceProber struct {
	transport Transport
	attempts  int
	backoff   time.Duration
	sleep     func(time.Duration)
	logger    *slog.Logger
}

// NewProber builds a prober over the given transport using the printer
// configuration's retry settings.
func NewProber(transport Transport, cfg config.Printer, logger *slog.Logger) *DeviceProber {
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &DeviceProber{
		transport: transport,
		attempts:  attempts,
		backoff:   time.Duration(cfg.ConnectBackoff) * time.Second,
		sleep:     time.Sleep,
		logger:    logger,
	}
}

func (p *DeviceProber) Probe(ctx context.Context) DeviceStatus {
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		response, err := p.transport.Exchange(ctx, statusRequest)
		if err == nil {
			if len(response) == 0 {
				return DeviceStatus{Status: StatusCommError, Message: "empty status response"}
			}
			return EvaluateResponse(string(response))
		}
		lastErr = err
		if !isUnreachable(err) || attempt == p.attempts {
			break
		}
		p.logger.Warn("printer unreachable, retrying",
			"attempt", attempt, "transport", p.transport.String())
		p.sleep(p.backoff)
	}
	return DeviceStatus{Status: StatusCommError, Message: "printer unreachable: " + lastErr.Error()}
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unreachable")
}
