package ledger

import (
	"strings"
	"time"
)

var serialHeader = []string{
	"creation_ts", "serial", "qr_code", "test_done_ts",
	"shipping_ts", "unit_type", "version", "sav_status",
}

var savHeader = []string{"arrival_ts", "serial", "departure_ts"}

// Record is one row of the serial ledger. Timestamp fields hold ISO 8601
// strings and are empty until the corresponding lifecycle step happens.
type Record struct {
	CreationTS string
	Serial     string
	QRCode     string
	TestDoneTS string
	ShippingTS string
	UnitType   string
	Version    string
	SavStatus  bool
}

// SavRecord is one row of the service sub-ledger. A visit is open while
// DepartureTS is empty.
type SavRecord struct {
	ArrivalTS   string
	Serial      string
	DepartureTS string
}

// Open reports whether the service visit has not yet been closed.
func (r SavRecord) Open() bool {
	return strings.TrimSpace(r.DepartureTS) == ""
}

// Timestamp renders a time in the ledger's timestamp format.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

func (r Record) row() []string {
	sav := "false"
	if r.SavStatus {
		sav = "true"
	}
	return []string{
		r.CreationTS, r.Serial, r.QRCode, r.TestDoneTS,
		r.ShippingTS, r.UnitType, r.Version, sav,
	}
}

func recordFromRow(row []string) Record {
	padded := make([]string, len(serialHeader))
	copy(padded, row)
	return Record{
		CreationTS: padded[0],
		Serial:     padded[1],
		QRCode:     padded[2],
		TestDoneTS: padded[3],
		ShippingTS: padded[4],
		UnitType:   padded[5],
		Version:    padded[6],
		SavStatus:  strings.EqualFold(strings.TrimSpace(padded[7]), "true"),
	}
}

func (r SavRecord) row() []string {
	return []string{r.ArrivalTS, r.Serial, r.DepartureTS}
}

func savFromRow(row []string) SavRecord {
	padded := make([]string, len(savHeader))
	copy(padded, row)
	return SavRecord{
		ArrivalTS:   padded[0],
		Serial:      padded[1],
		DepartureTS: padded[2],
	}
}
