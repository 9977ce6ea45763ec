package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"battrack/internal/config"
	"battrack/internal/faults"
)

// Store owns the serial ledger and the service sub-ledger. Every mutation
// reads the whole file, applies the change in memory, and rewrites the
// complete set. A single mutex serializes all access; critical sections
// are the only place ledger I/O happens.
type Store struct {
	mu         sync.Mutex
	serialPath string
	savPath    string
	prefix     string
	marker     string
	version    string
	logger     *slog.Logger
}

// NewStore builds a ledger store from configuration. version is stamped on
// new records and refreshed on test-done updates.
func NewStore(cfg *config.Config, version string, logger *slog.Logger) *Store {
	if version == "" {
		version = "dev"
	}
	return &Store{
		serialPath: cfg.Ledger.SerialFile,
		savPath:    cfg.Ledger.SavFile,
		prefix:     cfg.Ledger.SerialPrefix,
		marker:     cfg.Ledger.PlaceholderMarker,
		version:    version,
		logger:     logger,
	}
}

// Prefix returns the configured serial prefix.
func (s *Store) Prefix() string { return s.prefix }

// Marker returns the configured placeholder capacity marker.
func (s *Store) Marker() string { return s.marker }

// EnsureFiles heals missing or malformed headers on both ledger files.
func (s *Store) EnsureFiles() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureHeader(s.serialPath, serialHeader); err != nil {
		return err
	}
	return s.ensureHeader(s.savPath, savHeader)
}

// A file without the expected header is rewritten with the header alone.
func (s *Store) ensureHeader(path string, header []string) error {
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return faults.Wrap(faults.ErrLedgerIO, "ledger", "ensure header", path, err)
	default:
		content := strings.TrimSpace(string(raw))
		if content != "" && strings.HasPrefix(content, header[0]) {
			return nil
		}
		if content != "" && s.logger != nil {
			s.logger.Warn("ledger file missing header, reinitializing", slog.String("path", path))
		}
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return faults.Wrap(faults.ErrLedgerIO, "ledger", "ensure header", path, err)
		}
	}
	return s.writeRows(path, header, nil)
}

func (s *Store) readRows(path string, header []string) ([][]string, error) {
	if err := s.ensureHeader(path, header); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrLedgerIO, "ledger", "read", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, faults.Wrap(faults.ErrLedgerIO, "ledger", "read", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}

// writeRows replaces the file contents via a same-directory temp file so a
// crash mid-write never leaves a half-rewritten ledger behind.
func (s *Store) writeRows(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return faults.Wrap(faults.ErrLedgerIO, "ledger", "rewrite", path, err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err == nil {
		err = writer.WriteAll(rows)
	}
	writer.Flush()
	flushErr := writer.Error()
	closeErr := tmp.Close()
	if flushErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if flushErr == nil {
			flushErr = closeErr
		}
		return faults.Wrap(faults.ErrLedgerIO, "ledger", "rewrite", path, flushErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return faults.Wrap(faults.ErrLedgerIO, "ledger", "rewrite", path, err)
	}
	return nil
}

// Records returns every serial ledger row.
func (s *Store) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records()
}

func (s *Store) records() ([]Record, error) {
	rows, err := s.readRows(s.serialPath, serialHeader)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

func (s *Store) rewrite(records []Record) error {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.row()
	}
	return s.writeRows(s.serialPath, serialHeader, rows)
}

// NextSequence returns one plus the highest sequence among records sharing
// the configured prefix, or 0 when none exist.
func (s *Store) NextSequence() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.records()
	if err != nil {
		return 0, err
	}
	return s.nextSequence(records), nil
}

func (s *Store) nextSequence(records []Record) int {
	next := 0
	for _, rec := range records {
		if seq, ok := SequenceOf(rec.Serial, s.prefix); ok && seq+1 > next {
			next = seq + 1
		}
	}
	return next
}

// NewRecord allocates the next placeholder serial, generates a QR code, and
// appends the record in one critical section.
func (s *Store) NewRecord(unitType, creationTS string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.records()
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		CreationTS: creationTS,
		Serial:     FormatSerial(s.prefix, s.marker, s.nextSequence(records)),
		QRCode:     NewQRCode(6),
		UnitType:   unitType,
		Version:    s.version,
	}
	if err := s.rewrite(append(records, rec)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Create appends a fully formed record. Used by tests and imports; normal
// creation goes through NewRecord.
func (s *Store) Create(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.records()
	if err != nil {
		return err
	}
	return s.rewrite(append(records, rec))
}

// Find returns the record for a full serial number.
func (s *Store) Find(serial string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(serial)
}

func (s *Store) find(serial string) (Record, error) {
	records, err := s.records()
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if rec.Serial == serial {
			return rec, nil
		}
	}
	return Record{}, faults.Wrap(faults.ErrNotFound, "ledger", "find", serial, nil)
}

// Resolve looks a record up by full serial or by the bare 4-digit short
// form. Sequences are unique across the shared prefix, so the short form
// matches at most one record.
func (s *Store) Resolve(token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if seq, ok := ShortSequence(token); ok {
		records, err := s.records()
		if err != nil {
			return Record{}, err
		}
		for _, rec := range records {
			if got, ok := SequenceOf(rec.Serial, s.prefix); ok && got == seq {
				return rec, nil
			}
		}
		return Record{}, faults.Wrap(faults.ErrNotFound, "ledger", "resolve", token, nil)
	}
	return s.find(token)
}

func (s *Store) mutate(serial string, apply func(*Record)) (bool, error) {
	records, err := s.records()
	if err != nil {
		return false, err
	}
	updated := false
	for i := range records {
		if records[i].Serial == serial {
			apply(&records[i])
			updated = true
		}
	}
	if !updated {
		return false, nil
	}
	if err := s.rewrite(records); err != nil {
		return false, err
	}
	return true, nil
}

// SetTestDone stamps the test-done timestamp and refreshes the software
// version on the matching record. Returns false when no row matched.
func (s *Store) SetTestDone(serial, ts string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(serial, func(rec *Record) {
		rec.TestDoneTS = ts
		rec.Version = s.version
	})
}

// SetShipping stamps the shipping timestamp on the matching record. The
// timestamp only transitions unset to set or refreshes; it is never cleared.
func (s *Store) SetShipping(serial, ts string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(ts) == "" {
		return false, faults.Wrap(faults.ErrValidation, "ledger", "set shipping", "empty timestamp", nil)
	}
	return s.mutate(serial, func(rec *Record) {
		rec.ShippingTS = ts
	})
}

// SetSavFlag sets or clears the service flag on the matching record.
func (s *Store) SetSavFlag(serial string, on bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(serial, func(rec *Record) {
		rec.SavStatus = on
	})
}

// Finalize replaces the placeholder capacity marker with a concrete code
// and returns the finalized serial. The record keeps its sequence, QR code,
// and creation timestamp.
func (s *Store) Finalize(serial, capacity string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !IsPlaceholder(serial, s.prefix, s.marker) {
		return "", faults.Wrap(faults.ErrValidation, "ledger", "finalize",
			fmt.Sprintf("serial %s has no placeholder marker", serial), nil)
	}
	seq, _ := SequenceOf(serial, s.prefix)
	finalized := FormatSerial(s.prefix, capacity, seq)
	updated, err := s.mutate(serial, func(rec *Record) {
		rec.Serial = finalized
	})
	if err != nil {
		return "", err
	}
	if !updated {
		return "", faults.Wrap(faults.ErrNotFound, "ledger", "finalize", serial, nil)
	}
	return finalized, nil
}
