package ledger

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

const sequenceDigits = 4

const qrCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// FormatSerial assembles a serial number from its three segments.
func FormatSerial(prefix, capacity string, sequence int) string {
	return fmt.Sprintf("%s%s%0*d", prefix, capacity, sequenceDigits, sequence)
}

// SequenceOf extracts the 4-digit sequence from a serial sharing the given
// prefix. The second return is false when the serial does not match the
// prefix or lacks a numeric tail.
func SequenceOf(serial, prefix string) (int, bool) {
	if !strings.HasPrefix(serial, prefix) {
		return 0, false
	}
	tail := serial[len(prefix):]
	if len(tail) < sequenceDigits {
		return 0, false
	}
	digits := tail[len(tail)-sequenceDigits:]
	seq, err := strconv.Atoi(digits)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// CapacityOf extracts the capacity segment (placeholder or concrete code)
// from a serial sharing the given prefix.
func CapacityOf(serial, prefix string) (string, bool) {
	if _, ok := SequenceOf(serial, prefix); !ok {
		return "", false
	}
	tail := serial[len(prefix):]
	return tail[:len(tail)-sequenceDigits], true
}

// IsPlaceholder reports whether the serial's capacity segment still carries
// the pending marker.
func IsPlaceholder(serial, prefix, marker string) bool {
	capacity, ok := CapacityOf(serial, prefix)
	return ok && capacity == marker
}

// ShortSequence reports whether the token looks like the bare 4-digit short
// form operators may scan instead of a full serial.
func ShortSequence(token string) (int, bool) {
	if len(token) != sequenceDigits {
		return 0, false
	}
	seq, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// NormalizeModelKey strips separator dots from a model key so "2.71"
// matches capacity code "271".
func NormalizeModelKey(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), ".", "")
}

// NewQRCode returns a fresh random alphanumeric code of the given length.
func NewQRCode(length int) string {
	if length <= 0 {
		length = 6
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = qrCodeAlphabet[rand.Intn(len(qrCodeAlphabet))]
	}
	return string(buf)
}
