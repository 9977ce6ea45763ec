package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"battrack/internal/bus"
	"battrack/internal/logging"
	"battrack/internal/printer"
	"battrack/internal/printqueue"
	"battrack/internal/testsupport"
)

type readyProber struct{}

func (readyProber) Probe(context.Context) printer.DeviceStatus {
	return printer.DeviceStatus{Status: printer.StatusReady, Message: "printer ready", Ready: true}
}

type nullTransport struct{}

func (*nullTransport) Send(context.Context, []byte) error { return nil }
func (*nullTransport) Exchange(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("not used")
}
func (*nullTransport) String() string { return "null" }

func newTestDaemon(t *testing.T) (*Daemon, *bus.LocalBus) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, "test", logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	local := bus.NewLocalBus()
	d.newBus = func(context.Context) (bus.Bus, error) { return local, nil }
	d.prober = readyProber{}
	d.worker = printqueue.NewWorker(d.queue, readyProber{}, &nullTransport{}, cfg.Queue, logging.Nop())
	return d, local
}

func waitFor(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonRun(t *testing.T) {
	d, local := newTestDaemon(t)

	var results []bus.OperationResult
	resultCh := make(chan struct{}, 16)
	if err := local.Subscribe(context.Background(), []string{d.topics.OperationResult()},
		func(_ context.Context, msg bus.Message) {
			var res bus.OperationResult
			if err := json.Unmarshal(msg.Payload, &res); err == nil {
				results = append(results, res)
				resultCh <- struct{}{}
			}
		}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "retained device status", func() bool {
		payload, ok := local.Retained(d.topics.Status())
		return ok && string(payload) == "on"
	})
	if payload, ok := local.Retained(d.topics.DetailedStatus()); !ok {
		t.Fatal("detailed status not retained")
	} else {
		var detailed bus.DetailedStatus
		if err := json.Unmarshal(payload, &detailed); err != nil {
			t.Fatal(err)
		}
		if !detailed.Ready || detailed.Status != string(printer.StatusReady) {
			t.Fatalf("detailed = %+v", detailed)
		}
	}

	if err := local.Publish(ctx, d.topics.CreateLabel(), []byte(`{"unit_type":"A"}`), false); err != nil {
		t.Fatal(err)
	}
	select {
	case <-resultCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no operation result")
	}
	if len(results) != 1 || !results[0].Success || !strings.Contains(results[0].Message, "RW-48vXXX0000") {
		t.Fatalf("results = %+v", results)
	}
	if _, err := d.store.Find("RW-48vXXX0000"); err != nil {
		t.Fatalf("record not written: %v", err)
	}

	waitFor(t, "worker to drain the queue", func() bool { return d.queue.Len() == 0 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if payload, ok := local.Retained(d.topics.Status()); !ok || string(payload) != "off" {
		t.Fatalf("parting status = %q %v, want off", payload, ok)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	d, local := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "lock acquisition", func() bool {
		_, ok := local.Retained(d.topics.Status())
		return ok
	})

	second, _ := newTestDaemon2(t, d)
	if err := second.Run(context.Background()); err == nil {
		t.Fatal("second instance must refuse to start")
	}

	cancel()
	<-done
}

// newTestDaemon2 builds a second daemon over the same data directory.
func newTestDaemon2(t *testing.T, first *Daemon) (*Daemon, *bus.LocalBus) {
	t.Helper()
	d, err := New(first.cfg, "test", logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	local := bus.NewLocalBus()
	d.newBus = func(context.Context) (bus.Bus, error) { return local, nil }
	d.prober = readyProber{}
	d.worker = printqueue.NewWorker(d.queue, readyProber{}, &nullTransport{}, first.cfg.Queue, logging.Nop())
	return d, local
}
