package ledger

import (
	"strings"
	"time"
)

// Stats summarizes production and shipment activity from the serial ledger.
type Stats struct {
	TotalRecords  int
	ProducedToday int
	ShippedToday  int
	ShippedMonth  int
}

// SavStats summarizes service sub-ledger activity.
type SavStats struct {
	OpenVisits      int
	TotalEntries    int
	DeparturesToday int
}

// Stats computes activity counters relative to now.
func (s *Store) Stats(now time.Time) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.records()
	if err != nil {
		return Stats{}, err
	}
	today := now.Format("2006-01-02")
	month := now.Format("2006-01")
	stats := Stats{TotalRecords: len(records)}
	for _, rec := range records {
		if strings.HasPrefix(rec.CreationTS, today) {
			stats.ProducedToday++
		}
		if rec.ShippingTS != "" {
			if strings.HasPrefix(rec.ShippingTS, today) {
				stats.ShippedToday++
			}
			if strings.HasPrefix(rec.ShippingTS, month) {
				stats.ShippedMonth++
			}
		}
	}
	return stats, nil
}

// SavStats computes service counters relative to now.
func (s *Store) SavStats(now time.Time) (SavStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.savRecords()
	if err != nil {
		return SavStats{}, err
	}
	today := now.Format("2006-01-02")
	stats := SavStats{}
	for _, rec := range records {
		if strings.TrimSpace(rec.Serial) == "" {
			continue
		}
		stats.TotalEntries++
		if rec.Open() {
			stats.OpenVisits++
		} else if strings.HasPrefix(rec.DepartureTS, today) {
			stats.DeparturesToday++
		}
	}
	return stats, nil
}
