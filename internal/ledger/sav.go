package ledger

import (
	"log/slog"
	"strings"

	"battrack/internal/faults"
)

// SavRecords returns every service sub-ledger row.
func (s *Store) SavRecords() ([]SavRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savRecords()
}

func (s *Store) savRecords() ([]SavRecord, error) {
	rows, err := s.readRows(s.savPath, savHeader)
	if err != nil {
		return nil, err
	}
	records := make([]SavRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		records = append(records, savFromRow(row))
	}
	return records, nil
}

func (s *Store) rewriteSav(records []SavRecord) error {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.row()
	}
	return s.writeRows(s.savPath, savHeader, rows)
}

// SavOpen reports whether the serial is currently in service. The main
// ledger's service flag is authoritative; the sub-ledger rows are history
// and are not consulted.
func (s *Store) SavOpen(serial string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.find(serial)
	if err != nil {
		return false, err
	}
	return rec.SavStatus, nil
}

// OpenSav appends an arrival row to the sub-ledger and raises the service
// flag on the main ledger. The two writes are sequential; when the flag
// update fails after the sub-ledger write succeeded, the inconsistency is
// logged and reported, never repaired.
func (s *Store) OpenSav(serial, arrivalTS string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.find(serial)
	if err != nil {
		return err
	}
	if rec.SavStatus {
		return faults.Wrap(faults.ErrValidation, "ledger", "sav entry",
			"serial "+serial+" already has an open service visit", nil)
	}

	records, err := s.savRecords()
	if err != nil {
		return err
	}
	if err := s.rewriteSav(append(records, SavRecord{ArrivalTS: arrivalTS, Serial: serial})); err != nil {
		return err
	}

	updated, err := s.mutate(serial, func(rec *Record) { rec.SavStatus = true })
	if err != nil || !updated {
		if s.logger != nil {
			s.logger.Warn("service visit opened but main ledger flag not set",
				slog.String("serial", serial), slog.Any("error", err))
		}
		return faults.Wrap(faults.ErrLedgerIO, "ledger", "sav entry",
			"sub-ledger updated but service flag not set for "+serial, err)
	}
	return nil
}

// CloseSav stamps the departure timestamp on the open visit and clears the
// service flag on the main ledger.
func (s *Store) CloseSav(serial, departureTS string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.find(serial)
	if err != nil {
		return err
	}
	if !rec.SavStatus {
		return faults.Wrap(faults.ErrValidation, "ledger", "sav departure",
			"serial "+serial+" has no open service visit", nil)
	}

	records, err := s.savRecords()
	if err != nil {
		return err
	}
	closed := false
	for i := range records {
		if records[i].Serial == serial && records[i].Open() {
			records[i].DepartureTS = departureTS
			closed = true
		}
	}
	if !closed && s.logger != nil {
		s.logger.Warn("service flag set but no open sub-ledger row",
			slog.String("serial", serial))
	}
	if err := s.rewriteSav(records); err != nil {
		return err
	}

	updated, err := s.mutate(serial, func(rec *Record) { rec.SavStatus = false })
	if err != nil || !updated {
		if s.logger != nil {
			s.logger.Warn("service visit closed but main ledger flag not cleared",
				slog.String("serial", serial), slog.Any("error", err))
		}
		return faults.Wrap(faults.ErrLedgerIO, "ledger", "sav departure",
			"sub-ledger updated but service flag not cleared for "+serial, err)
	}
	return nil
}
