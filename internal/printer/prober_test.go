package printer

import (
	"context"
	"errors"
	"testing"
	"time"

	"battrack/internal/config"
	"battrack/internal/logging"
)

// scriptedTransport replays a fixed sequence of exchange results.
type scriptedTransport struct {
	responses []string
	errs      []error
	calls     int
	sent      [][]byte
}

func (s *scriptedTransport) Send(_ context.Context, payload []byte) error {
	s.sent = append(s.sent, payload)
	return nil
}

func (s *scriptedTransport) Exchange(_ context.Context, _ []byte) ([]byte, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return []byte(s.responses[i]), nil
	}
	return nil, errors.New("script exhausted")
}

func (s *scriptedTransport) String() string { return "scripted" }

func newTestProber(transport Transport, attempts int) (*DeviceProber, *int) {
	cfg := config.Printer{ConnectAttempts: attempts, ConnectBackoff: 5}
	prober := NewProber(transport, cfg, logging.Nop())
	slept := 0
	prober.sleep = func(time.Duration) { slept++ }
	return prober, &slept
}

func TestProbeReady(t *testing.T) {
	transport := &scriptedTransport{responses: []string{readyResponse}}
	prober, _ := newTestProber(transport, 3)

	status := prober.Probe(context.Background())
	if status.Status != StatusReady || !status.Ready {
		t.Fatalf("status = %+v, want ready", status)
	}
	if transport.calls != 1 {
		t.Fatalf("calls = %d, want 1", transport.calls)
	}
}

func TestProbeRetriesUnreachable(t *testing.T) {
	transport := &scriptedTransport{
		errs:      []error{errors.New("connect: network is unreachable"), nil},
		responses: []string{"", readyResponse},
	}
	prober, slept := newTestProber(transport, 3)

	status := prober.Probe(context.Background())
	if status.Status != StatusReady {
		t.Fatalf("status = %+v, want ready after retry", status)
	}
	if transport.calls != 2 {
		t.Fatalf("calls = %d, want 2", transport.calls)
	}
	if *slept != 1 {
		t.Fatalf("slept %d times, want 1", *slept)
	}
}

func TestProbeUnreachableExhaustsAttempts(t *testing.T) {
	unreachable := errors.New("connect: network is unreachable")
	transport := &scriptedTransport{errs: []error{unreachable, unreachable, unreachable}}
	prober, slept := newTestProber(transport, 3)

	status := prober.Probe(context.Background())
	if status.Status != StatusCommError {
		t.Fatalf("status = %+v, want comm error", status)
	}
	if transport.calls != 3 {
		t.Fatalf("calls = %d, want 3", transport.calls)
	}
	if *slept != 2 {
		t.Fatalf("slept %d times, want 2", *slept)
	}
}

func TestProbeOtherErrorFailsFast(t *testing.T) {
	transport := &scriptedTransport{errs: []error{errors.New("connection refused")}}
	prober, slept := newTestProber(transport, 3)

	status := prober.Probe(context.Background())
	if status.Status != StatusCommError {
		t.Fatalf("status = %+v, want comm error", status)
	}
	if transport.calls != 1 || *slept != 0 {
		t.Fatalf("calls = %d slept = %d, want fail on first attempt", transport.calls, *slept)
	}
}

func TestProbeEmptyResponse(t *testing.T) {
	transport := &scriptedTransport{responses: []string{""}}
	prober, _ := newTestProber(transport, 3)

	status := prober.Probe(context.Background())
	if status.Status != StatusCommError {
		t.Fatalf("status = %+v, want comm error on empty response", status)
	}
}
