package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"battrack/internal/bus"
	"battrack/internal/config"
	"battrack/internal/ledger"
	"battrack/internal/notify"
)

// State identifies the session's position in a multi-step scan flow.
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitReprintSerial     State = "await_reprint_serial"
	StateAwaitReprintConfirm    State = "await_reprint_confirm"
	StateAwaitExpeditionSerial  State = "await_expedition_serial"
	StateAwaitExpeditionConfirm State = "await_expedition_confirm"
	StateAwaitSavSerial         State = "await_sav_serial"
	StateAwaitSavConfirm        State = "await_sav_confirm"
	StateAwaitFinishSerial      State = "await_finish_serial"
	StateAwaitFinishConfirm     State = "await_finish_confirm"
	StateAwaitQrText            State = "await_qr_text"
	StateAwaitQrContent         State = "await_qr_content"
	StateAwaitQrConfirm         State = "await_qr_confirm"
)

const scanTechnician = "scan_console"

// Session is the single live operator scan session. Tokens arrive one at a
// time through Input; every multi-step flow arms a countdown that resets
// the session back to Idle when the operator walks away.
type Session struct {
	mu sync.Mutex

	state     State
	store     *ledger.Store
	bus       bus.Bus
	topics    bus.Topics
	notifier  notify.Service
	logger    *slog.Logger
	timeout   time.Duration
	resetWait time.Duration

	now      func() time.Time
	schedule func(d time.Duration, fn func()) func()

	// gen invalidates pending timer fires across transitions.
	gen         int
	cancelTimer func()

	pendingSerial string
	pendingModel  string
	qrText        string
	qrContent     string
	batch         []string
	expedition    bool
}

func NewSession(store *ledger.Store, b bus.Bus, topics bus.Topics, notifier notify.Service, cfg config.Scan, logger *slog.Logger) *Session {
	return &Session{
		state:     StateIdle,
		store:     store,
		bus:       b,
		topics:    topics,
		notifier:  notifier,
		logger:    logger,
		timeout:   time.Duration(cfg.SessionTimeout) * time.Second,
		resetWait: time.Duration(cfg.InvalidResetDelay) * time.Second,
		now:       time.Now,
		schedule: func(d time.Duration, fn func()) func() {
			timer := time.AfterFunc(d, fn)
			return func() { timer.Stop() }
		},
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Batch returns a copy of the accumulated expedition batch.
func (s *Session) Batch() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.batch))
	copy(out, s.batch)
	return out
}

// Input processes one scanned or typed token and returns the operator
// feedback lines.
func (s *Session) Input(ctx context.Context, raw string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimSpace(raw)
	if token == "" {
		return nil
	}
	lower := strings.ToLower(token)
	s.logger.Debug("scan token", "token", token, "state", string(s.state))

	if s.state == StateIdle {
		if out, handled := s.handleGlobal(ctx, token, lower); handled {
			return out
		}
		return s.handleIdle(token)
	}

	if lower == "cancel" && s.expedition {
		count := len(s.batch)
		s.resetLocked()
		return []string{fmt.Sprintf("expedition cancelled, %d serial(s) discarded", count)}
	}

	switch s.state {
	case StateAwaitReprintSerial:
		return s.handleReprintSerial(token)
	case StateAwaitReprintConfirm:
		return s.handleReprintConfirm(ctx, lower)
	case StateAwaitExpeditionSerial:
		return s.handleExpeditionSerial(ctx, token, lower)
	case StateAwaitSavSerial:
		return s.handleSavSerial(token)
	case StateAwaitSavConfirm:
		return s.handleSavConfirm(ctx, lower)
	case StateAwaitFinishSerial:
		return s.handleFinishSerial(token)
	case StateAwaitFinishConfirm:
		return s.handleFinishConfirm(ctx, lower)
	case StateAwaitQrText:
		return s.handleQrText(token)
	case StateAwaitQrContent:
		return s.handleQrContent(token)
	case StateAwaitQrConfirm:
		return s.handleQrConfirm(ctx, lower)
	default:
		s.resetLocked()
		return []string{"session reset"}
	}
}

// handleGlobal recognizes the Idle commands. Returns handled=false when the
// token is not a command.
func (s *Session) handleGlobal(ctx context.Context, token, lower string) ([]string, bool) {
	switch {
	case lower == "create" || strings.HasPrefix(lower, "create "):
		return s.startCreate(ctx, token), true
	case lower == "finish" || strings.HasPrefix(lower, "finish "):
		return s.startFinish(token), true
	case lower == "reprint":
		s.transition(StateAwaitReprintSerial)
		return []string{"reprint mode: scan the serial to reprint"}, true
	case lower == "expedition":
		s.transition(StateAwaitExpeditionSerial)
		s.expedition = true
		s.batch = nil
		return []string{"expedition mode: scan serials, then 'expedition' to finalize or 'cancel' to abort"}, true
	case lower == "sav":
		s.transition(StateAwaitSavSerial)
		return []string{"service mode: scan the returned serial"}, true
	case lower == "new qr":
		s.transition(StateAwaitQrText)
		return []string{"qr mode: scan or type the label text"}, true
	}
	return nil, false
}

func (s *Session) handleIdle(token string) []string {
	if rec, err := s.store.Resolve(token); err == nil {
		return []string{fmt.Sprintf("serial %s on file, use 'reprint' to print its labels again", rec.Serial)}
	}
	return []string{fmt.Sprintf("unknown command: %s", token)}
}

// startCreate publishes the create command directly; a single letter is a
// unit type, anything longer is the legacy operator name form.
func (s *Session) startCreate(ctx context.Context, token string) []string {
	arg := strings.TrimSpace(token[len("create"):])
	if arg == "" {
		return []string{"usage: create <unit type or operator name>"}
	}
	var req bus.CreateRequest
	if len(arg) == 1 {
		req.UnitType = strings.ToUpper(arg)
	} else {
		req.CheckerName = arg
	}
	if err := s.publish(ctx, s.topics.CreateLabel(), req); err != nil {
		return []string{"create request failed to send"}
	}
	return []string{"create requested, labels will follow"}
}

func (s *Session) startFinish(token string) []string {
	model := ledger.NormalizeModelKey(token[len("finish"):])
	if model == "" {
		return []string{"usage: finish <model>"}
	}
	s.pendingModel = model
	s.transition(StateAwaitFinishSerial)
	return []string{fmt.Sprintf("finish mode (%s): scan the placeholder serial", model)}
}

func (s *Session) handleReprintSerial(token string) []string {
	rec, err := s.store.Resolve(token)
	if err != nil {
		s.armReset()
		return []string{fmt.Sprintf("serial not found: %s", token)}
	}
	s.pendingSerial = rec.Serial
	s.transition(StateAwaitReprintConfirm)
	return []string{fmt.Sprintf("serial %s selected, scan 'reprint' to confirm", rec.Serial)}
}

func (s *Session) handleReprintConfirm(ctx context.Context, lower string) []string {
	if lower != "reprint" {
		s.armReset()
		return []string{"expected 'reprint' to confirm"}
	}
	serial := s.pendingSerial
	err := s.publish(ctx, s.topics.FullReprint(), bus.ReprintRequest{SerialNumber: serial})
	s.resetLocked()
	if err != nil {
		return []string{"reprint request failed to send"}
	}
	return []string{fmt.Sprintf("reprint requested for %s", serial)}
}

func (s *Session) handleExpeditionSerial(ctx context.Context, token, lower string) []string {
	if lower == "expedition" {
		s.state = StateAwaitExpeditionConfirm
		return s.finalizeExpedition(ctx)
	}

	rec, err := s.store.Resolve(token)
	if err != nil {
		return []string{fmt.Sprintf("serial not found: %s (scan more or 'expedition' to finalize)", token)}
	}
	if ledger.IsPlaceholder(rec.Serial, s.store.Prefix(), s.store.Marker()) {
		return []string{fmt.Sprintf("serial %s is not finalized, cannot ship", rec.Serial)}
	}
	for _, queued := range s.batch {
		if queued == rec.Serial {
			return []string{fmt.Sprintf("already in the batch: %s", rec.Serial)}
		}
	}
	s.batch = append(s.batch, rec.Serial)
	s.armTimeout()

	lines := []string{fmt.Sprintf("added %s (%d in batch)", rec.Serial, len(s.batch))}
	if open, err := s.store.SavOpen(rec.Serial); err == nil && open {
		lines = append(lines, fmt.Sprintf("service return detected: %s will be closed out on finalize", rec.Serial))
	}
	return lines
}

// finalizeExpedition routes every batched serial either to a service
// departure or to a shipping update, never both, then reports the batch.
func (s *Session) finalizeExpedition(ctx context.Context) []string {
	if len(s.batch) == 0 {
		s.resetLocked()
		return []string{"no serials scanned, expedition aborted"}
	}

	ts := ledger.Timestamp(s.now())
	var shipped, returned, failed []string
	for _, serial := range s.batch {
		open, err := s.store.SavOpen(serial)
		if err != nil {
			s.logger.Error("service lookup failed during finalize", "serial", serial, "error", err)
			failed = append(failed, serial)
			continue
		}
		if open {
			err = s.publish(ctx, s.topics.SavDeparture(), bus.SavDeparture{
				SerialNumber:    serial,
				TimestampDepart: ts,
			})
			if err == nil {
				returned = append(returned, serial)
			}
		} else {
			err = s.publish(ctx, s.topics.ShippingUpdate(), bus.ShippingUpdate{
				SerialNumber:        serial,
				TimestampExpedition: ts,
			})
			if err == nil {
				shipped = append(shipped, serial)
			}
		}
		if err != nil {
			failed = append(failed, serial)
		}
	}

	lines := []string{fmt.Sprintf("expedition finalized: %d shipped, %d service returns", len(shipped), len(returned))}
	if len(failed) > 0 {
		lines = append(lines, fmt.Sprintf("failed to send %d update(s): %s", len(failed), strings.Join(failed, ", ")))
	}

	if len(shipped) > 0 || len(returned) > 0 {
		shipment := notify.Shipment{Shipped: shipped, Returned: returned, Timestamp: s.now()}
		if err := s.notifier.ShipmentNotice(ctx, shipment); err != nil {
			s.logger.Warn("shipment notice not sent", "error", err)
			lines = append(lines, "shipment mail could not be sent")
		}
	}

	s.resetLocked()
	return lines
}

func (s *Session) handleSavSerial(token string) []string {
	rec, err := s.store.Resolve(token)
	if err != nil {
		s.armReset()
		return []string{fmt.Sprintf("serial not found: %s", token)}
	}
	s.pendingSerial = rec.Serial
	s.transition(StateAwaitSavConfirm)
	return []string{fmt.Sprintf("serial %s selected, scan 'sav' to confirm the service entry", rec.Serial)}
}

func (s *Session) handleSavConfirm(ctx context.Context, lower string) []string {
	if lower != "sav" {
		s.armReset()
		return []string{"expected 'sav' to confirm"}
	}
	serial := s.pendingSerial
	err := s.publish(ctx, s.topics.SavEntry(), bus.SavEntry{
		SerialNumber:        serial,
		TimestampSavArrivee: ledger.Timestamp(s.now()),
		Technician:          scanTechnician,
	})
	s.resetLocked()
	if err != nil {
		return []string{"service entry failed to send"}
	}
	return []string{fmt.Sprintf("service entry recorded for %s", serial)}
}

func (s *Session) handleFinishSerial(token string) []string {
	rec, err := s.store.Resolve(token)
	if err != nil {
		s.armReset()
		return []string{fmt.Sprintf("serial not found: %s", token)}
	}
	if !ledger.IsPlaceholder(rec.Serial, s.store.Prefix(), s.store.Marker()) {
		s.armReset()
		return []string{fmt.Sprintf("serial %s is already finalized", rec.Serial)}
	}
	s.pendingSerial = rec.Serial
	s.transition(StateAwaitFinishConfirm)
	return []string{fmt.Sprintf("serial %s selected, scan 'finish' to validate as model %s", rec.Serial, s.pendingModel)}
}

func (s *Session) handleFinishConfirm(ctx context.Context, lower string) []string {
	confirmed := lower == "finish"
	if !confirmed && strings.HasPrefix(lower, "finish ") {
		// The repeated argument may use the unnormalized form (2.71 for 271).
		confirmed = strings.EqualFold(ledger.NormalizeModelKey(lower[len("finish"):]), s.pendingModel)
	}
	if !confirmed {
		s.armReset()
		return []string{"expected 'finish' to confirm"}
	}
	serial, model := s.pendingSerial, s.pendingModel
	err := s.publish(ctx, s.topics.FinishSerial(), bus.FinishRequest{
		TempSerial:    serial,
		FinalModelKey: model,
	})
	s.resetLocked()
	if err != nil {
		return []string{"finish request failed to send"}
	}
	return []string{fmt.Sprintf("finish requested: %s as model %s", serial, model)}
}

func (s *Session) handleQrText(token string) []string {
	s.qrText = token
	s.transition(StateAwaitQrContent)
	return []string{"scan or type the qr content"}
}

func (s *Session) handleQrContent(token string) []string {
	s.qrContent = token
	s.transition(StateAwaitQrConfirm)
	return []string{fmt.Sprintf("qr label %q -> %q, scan 'new qr' to print", s.qrText, s.qrContent)}
}

func (s *Session) handleQrConfirm(ctx context.Context, lower string) []string {
	if lower != "new qr" {
		s.armReset()
		return []string{"expected 'new qr' to confirm"}
	}
	text, content := s.qrText, s.qrContent
	err := s.publish(ctx, s.topics.CreateQR(), bus.CustomQR{DisplayText: text, QRContent: content})
	s.resetLocked()
	if err != nil {
		return []string{"qr request failed to send"}
	}
	return []string{fmt.Sprintf("qr label queued for %q", text)}
}

func (s *Session) publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, topic, data, false); err != nil {
		s.logger.Error("scan publish failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

// transition moves to a new waiting state and re-arms the session timeout.
func (s *Session) transition(next State) {
	s.state = next
	s.armTimeout()
}

func (s *Session) armTimeout() { s.arm(s.timeout) }

// armReset schedules the short reset that follows an invalid token.
func (s *Session) armReset() { s.arm(s.resetWait) }

func (s *Session) arm(d time.Duration) {
	if s.cancelTimer != nil {
		s.cancelTimer()
	}
	s.gen++
	gen := s.gen
	s.cancelTimer = s.schedule(d, func() { s.expire(gen) })
}

// expire resets the session when no token arrived since the timer was
// armed.
func (s *Session) expire(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state == StateIdle {
		return
	}
	s.logger.Info("scan session timed out", "state", string(s.state))
	s.resetLocked()
}

func (s *Session) resetLocked() {
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	s.gen++
	s.state = StateIdle
	s.pendingSerial = ""
	s.pendingModel = ""
	s.qrText = ""
	s.qrContent = ""
	s.batch = nil
	s.expedition = false
}
