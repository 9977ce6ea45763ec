package printqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobKind selects what a queued job prints.
type JobKind string

const (
	// KindLabelSet prints the full identity, main, and shipping label set.
	KindLabelSet JobKind = "label_set"
	// KindCustomQR prints a single ad hoc QR label.
	KindCustomQR JobKind = "custom_qr"
)

// Job is one unit of printing work. A label-set job carries the serial,
// its verification code, and the fabrication date; a custom QR job carries
// the display text and the encoded content instead.
type Job struct {
	ID              string
	Kind            JobKind
	Serial          string
	QRCode          string
	FabricationDate string
	Text            string
	QRContent       string
	EnqueuedAt      time.Time
}

// NewLabelSetJob builds a job printing all labels for one unit.
func NewLabelSetJob(serial, qrCode, fabricationDate string) Job {
	return Job{
		ID:              uuid.NewString(),
		Kind:            KindLabelSet,
		Serial:          serial,
		QRCode:          qrCode,
		FabricationDate: fabricationDate,
		EnqueuedAt:      time.Now(),
	}
}

// NewCustomQRJob builds a job printing one QR label for arbitrary content.
func NewCustomQRJob(displayText, qrContent string) Job {
	return Job{
		ID:         uuid.NewString(),
		Kind:       KindCustomQR,
		Text:       displayText,
		QRContent:  qrContent,
		EnqueuedAt: time.Now(),
	}
}

// Queue is a FIFO of print jobs. The head job blocks everything behind it
// until it succeeds, so consumers peek at the head and pop it only after
// the transmit completed.
type Queue struct {
	mu   sync.Mutex
	jobs []Job
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a job and returns its position in the queue (1-based).
func (q *Queue) Enqueue(job Job) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return len(q.jobs)
}

// Peek returns the head job without removing it.
func (q *Queue) Peek() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	return q.jobs[0], true
}

// PopIf removes the head job only when it still carries the given id.
// Returns false when the head changed since the caller peeked.
func (q *Queue) PopIf(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 || q.jobs[0].ID != id {
		return false
	}
	q.jobs = q.jobs[1:]
	return true
}

// Len reports the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Snapshot copies the queued jobs in order for reporting.
func (q *Queue) Snapshot() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}
