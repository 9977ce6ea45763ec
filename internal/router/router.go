package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"battrack/internal/bus"
	"battrack/internal/config"
	"battrack/internal/faults"
	"battrack/internal/ledger"
	"battrack/internal/printer"
	"battrack/internal/printqueue"
)

// Operation names published in operation results.
const (
	opCreate       = "create"
	opFinish       = "finish"
	opReprint      = "reprint"
	opExpedition   = "expedition"
	opSavEntry     = "sav_entry"
	opSavDeparture = "sav_departure"
	opCreateQR     = "create_qr"
)

// Router dispatches consumed bus commands to the ledger and the print
// queue. Handlers never retry: a failed command is reported once on the
// operation result topic and dropped.
type Router struct {
	store  *ledger.Store
	queue  *printqueue.Queue
	bus    bus.Bus
	topics bus.Topics
	cfg    *config.Config
	logger *slog.Logger

	now   func() time.Time
	title cases.Caser
}

func New(store *ledger.Store, queue *printqueue.Queue, b bus.Bus, topics bus.Topics, cfg *config.Config, logger *slog.Logger) *Router {
	return &Router{
		store:  store,
		queue:  queue,
		bus:    b,
		topics: topics,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		title:  cases.Title(language.Und),
	}
}

// Handle routes one consumed message to its handler.
func (r *Router) Handle(ctx context.Context, msg bus.Message) {
	switch msg.Topic {
	case r.topics.CreateLabel():
		r.handleCreate(ctx, msg.Payload)
	case r.topics.FinishSerial():
		r.handleFinish(ctx, msg.Payload)
	case r.topics.FullReprint():
		r.handleReprint(ctx, msg.Payload)
	case r.topics.ShippingUpdate():
		r.handleShipping(ctx, msg.Payload)
	case r.topics.SavEntry():
		r.handleSavEntry(ctx, msg.Payload)
	case r.topics.SavDeparture():
		r.handleSavDeparture(ctx, msg.Payload)
	case r.topics.CreateQR():
		r.handleCreateQR(ctx, msg.Payload)
	default:
		r.logger.Warn("message on unrouted topic", "topic", msg.Topic)
	}
}

func (r *Router) publishResult(ctx context.Context, operation string, success bool, message string) {
	result := bus.OperationResult{
		Operation: operation,
		Success:   success,
		Message:   message,
		Timestamp: ledger.Timestamp(r.now()),
	}
	payload, err := json.Marshal(result)
	if err != nil {
		r.logger.Error("marshal operation result", "error", err)
		return
	}
	if err := r.bus.Publish(ctx, r.topics.OperationResult(), payload, false); err != nil {
		r.logger.Error("publish operation result", "operation", operation, "error", err)
	}
}

// unitTypeOf resolves the unit type from the request, falling back to the
// first letter of the legacy checker name.
func unitTypeOf(req bus.CreateRequest) string {
	if t := strings.TrimSpace(req.UnitType); t != "" {
		return strings.ToUpper(t)
	}
	name := strings.TrimSpace(req.CheckerName)
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1])
}

func (r *Router) handleCreate(ctx context.Context, payload []byte) {
	var req bus.CreateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		r.publishResult(ctx, opCreate, false, "invalid JSON payload")
		return
	}
	unitType := unitTypeOf(req)
	if unitType == "" {
		r.publishResult(ctx, opCreate, false, "unit type missing")
		return
	}
	if r.cfg.CompatibleCapacities(unitType) == nil {
		r.publishResult(ctx, opCreate, false, fmt.Sprintf("unknown unit type %s", unitType))
		return
	}

	now := r.now()
	rec, err := r.store.NewRecord(unitType, ledger.Timestamp(now))
	if err != nil {
		r.logger.Error("create record failed", "error", err)
		r.publishResult(ctx, opCreate, false, "ledger write failed")
		return
	}

	job := printqueue.NewLabelSetJob(rec.Serial, rec.QRCode, printer.FabricationDate(now))
	position := r.queue.Enqueue(job)

	message := fmt.Sprintf("serial created: %s (position %d in print queue)", rec.Serial, position)
	if name := strings.TrimSpace(req.CheckerName); name != "" {
		message += " for " + r.title.String(name)
	}
	r.logger.Info("serial created", "serial", rec.Serial, "unit_type", unitType, "queued", position)
	r.publishResult(ctx, opCreate, true, message)
}

func (r *Router) handleFinish(ctx context.Context, payload []byte) {
	var req bus.FinishRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		r.publishResult(ctx, opFinish, false, "invalid JSON payload")
		return
	}
	tempSerial := strings.TrimSpace(req.TempSerial)
	modelKey := ledger.NormalizeModelKey(req.FinalModelKey)
	if tempSerial == "" || modelKey == "" {
		r.publishResult(ctx, opFinish, false, "temp serial or model key missing")
		return
	}

	rec, err := r.store.Find(tempSerial)
	if err != nil {
		r.publishResult(ctx, opFinish, false, fmt.Sprintf("serial %s not found", tempSerial))
		return
	}
	if !r.compatible(rec.UnitType, modelKey) {
		r.publishResult(ctx, opFinish, false,
			fmt.Sprintf("model %s not compatible with unit type %s", modelKey, rec.UnitType))
		return
	}

	finalSerial, err := r.store.Finalize(tempSerial, modelKey)
	if err != nil {
		r.logger.Error("finalize failed", "serial", tempSerial, "error", err)
		r.publishResult(ctx, opFinish, false, finalizeFailureMessage(tempSerial, err))
		return
	}
	if _, err := r.store.SetTestDone(finalSerial, ledger.Timestamp(r.now())); err != nil {
		r.logger.Error("test-done stamp failed", "serial", finalSerial, "error", err)
		r.publishResult(ctx, opFinish, false, "test timestamp write failed")
		return
	}

	job := printqueue.NewLabelSetJob(finalSerial, rec.QRCode, fabricationDateOf(rec, r.now()))
	position := r.queue.Enqueue(job)
	r.logger.Info("serial finalized", "temp", tempSerial, "serial", finalSerial, "queued", position)
	r.publishResult(ctx, opFinish, true, fmt.Sprintf("serial finalized: %s", finalSerial))
}

func finalizeFailureMessage(serial string, err error) string {
	switch faults.Kind(err) {
	case "validation_error":
		return fmt.Sprintf("serial %s is already finalized", serial)
	case "not_found":
		return fmt.Sprintf("serial %s not found", serial)
	default:
		return "ledger write failed"
	}
}

func (r *Router) compatible(unitType, modelKey string) bool {
	for _, capacity := range r.cfg.CompatibleCapacities(unitType) {
		if capacity == modelKey {
			return true
		}
	}
	return false
}

// reprintToken accepts the JSON forms {"serial_number": ...} and
// {"serial_to_reprint": ...} as well as the bare serial string.
func reprintToken(payload []byte) string {
	var req bus.ReprintRequest
	if err := json.Unmarshal(payload, &req); err == nil {
		if req.SerialNumber != "" {
			return strings.TrimSpace(req.SerialNumber)
		}
		if req.SerialToReprint != "" {
			return strings.TrimSpace(req.SerialToReprint)
		}
	}
	token := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	if strings.HasPrefix(token, "{") {
		return ""
	}
	return token
}

func (r *Router) handleReprint(ctx context.Context, payload []byte) {
	token := reprintToken(payload)
	if token == "" {
		r.publishResult(ctx, opReprint, false, "serial number missing")
		return
	}

	rec, err := r.store.Resolve(token)
	if err != nil {
		r.publishResult(ctx, opReprint, false, fmt.Sprintf("serial %s not found", token))
		return
	}

	job := printqueue.NewLabelSetJob(rec.Serial, rec.QRCode, fabricationDateOf(rec, r.now()))
	position := r.queue.Enqueue(job)
	r.logger.Info("reprint queued", "serial", rec.Serial, "queued", position)
	r.publishResult(ctx, opReprint, true, fmt.Sprintf("reprint queued: %s", rec.Serial))
}

// fabricationDateOf derives the printed fabrication date from the record's
// creation timestamp, falling back to today when the timestamp is absent
// or unreadable.
func fabricationDateOf(rec ledger.Record, now time.Time) string {
	if rec.CreationTS != "" {
		if ts, err := time.Parse("2006-01-02T15:04:05", rec.CreationTS); err == nil {
			return printer.FabricationDate(ts)
		}
	}
	return printer.FabricationDate(now)
}

func (r *Router) handleShipping(ctx context.Context, payload []byte) {
	var req bus.ShippingUpdate
	if err := json.Unmarshal(payload, &req); err != nil {
		r.publishResult(ctx, opExpedition, false, "invalid JSON payload")
		return
	}
	serial := strings.TrimSpace(req.SerialNumber)
	ts := strings.TrimSpace(req.TimestampExpedition)
	if serial == "" || ts == "" {
		r.publishResult(ctx, opExpedition, false, "serial number or timestamp missing")
		return
	}

	updated, err := r.store.SetShipping(serial, ts)
	if err != nil {
		r.logger.Error("shipping update failed", "serial", serial, "error", err)
		r.publishResult(ctx, opExpedition, false, "ledger write failed")
		return
	}
	if !updated {
		r.publishResult(ctx, opExpedition, false, fmt.Sprintf("serial %s not found", serial))
		return
	}
	r.publishResult(ctx, opExpedition, true, fmt.Sprintf("shipping updated: %s", serial))
}

func (r *Router) handleSavEntry(ctx context.Context, payload []byte) {
	var req bus.SavEntry
	if err := json.Unmarshal(payload, &req); err != nil {
		r.publishResult(ctx, opSavEntry, false, "invalid JSON payload")
		return
	}
	serial := strings.TrimSpace(req.SerialNumber)
	ts := strings.TrimSpace(req.TimestampSavArrivee)
	if serial == "" || ts == "" {
		r.publishResult(ctx, opSavEntry, false, "serial number or timestamp missing")
		return
	}

	if _, err := r.store.Find(serial); err != nil {
		r.publishResult(ctx, opSavEntry, false, fmt.Sprintf("serial %s not found", serial))
		return
	}
	if err := r.store.OpenSav(serial, ts); err != nil {
		r.logger.Warn("sav entry rejected", "serial", serial, "error", err)
		r.publishResult(ctx, opSavEntry, false, savFailureMessage(serial, err))
		return
	}
	r.logger.Info("sav visit opened", "serial", serial, "technician", req.Technician)
	r.publishResult(ctx, opSavEntry, true, fmt.Sprintf("service visit opened: %s", serial))
}

func (r *Router) handleSavDeparture(ctx context.Context, payload []byte) {
	var req bus.SavDeparture
	if err := json.Unmarshal(payload, &req); err != nil {
		r.publishResult(ctx, opSavDeparture, false, "invalid JSON payload")
		return
	}
	serial := strings.TrimSpace(req.SerialNumber)
	ts := strings.TrimSpace(req.TimestampDepart)
	if serial == "" || ts == "" {
		r.publishResult(ctx, opSavDeparture, false, "serial number or timestamp missing")
		return
	}

	if err := r.store.CloseSav(serial, ts); err != nil {
		r.logger.Warn("sav departure rejected", "serial", serial, "error", err)
		r.publishResult(ctx, opSavDeparture, false, savFailureMessage(serial, err))
		return
	}
	r.logger.Info("sav visit closed", "serial", serial)
	r.publishResult(ctx, opSavDeparture, true, fmt.Sprintf("service visit closed: %s", serial))
}

func savFailureMessage(serial string, err error) string {
	switch faults.Kind(err) {
	case "not_found":
		return fmt.Sprintf("serial %s not found", serial)
	case "validation_error":
		return fmt.Sprintf("service state conflict for %s", serial)
	default:
		return "ledger write failed"
	}
}

func (r *Router) handleCreateQR(ctx context.Context, payload []byte) {
	var req bus.CustomQR
	if err := json.Unmarshal(payload, &req); err != nil {
		r.publishResult(ctx, opCreateQR, false, "invalid JSON payload")
		return
	}
	content := strings.TrimSpace(req.QRContent)
	if content == "" {
		content = strings.TrimSpace(req.QRText)
	}
	display := strings.TrimSpace(req.DisplayText)
	if display == "" {
		display = content
	}
	if content == "" {
		r.publishResult(ctx, opCreateQR, false, "qr content missing")
		return
	}

	position := r.queue.Enqueue(printqueue.NewCustomQRJob(display, content))
	r.logger.Info("custom qr queued", "text", display, "queued", position)
	r.publishResult(ctx, opCreateQR, true, fmt.Sprintf("qr label queued: %s", display))
}
