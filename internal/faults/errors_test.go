package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := fmt.Errorf("open serials.csv: permission denied")
	err := Wrap(ErrLedgerIO, "ledger", "append", "write record", cause)

	if !errors.Is(err, ErrLedgerIO) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	want := "ledger io error: ledger: append: write record: open serials.csv: permission denied"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "router", "dispatch", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrValidation, "router", "create", "bad unit type", nil), "validation_error"},
		{Wrap(ErrNotFound, "ledger", "find", "", nil), "not_found"},
		{Wrap(ErrLedgerIO, "ledger", "rewrite", "", nil), "ledger_io_error"},
		{Wrap(ErrDeviceComm, "printer", "probe", "", nil), "device_comm_error"},
		{Wrap(ErrDeviceFault, "printer", "probe", "media out", nil), "device_fault"},
		{errors.New("anything else"), "transient_failure"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(Wrap(ErrValidation, "", "", "", nil)) {
		t.Error("validation errors must not retry")
	}
	if Retryable(Wrap(ErrNotFound, "", "", "", nil)) {
		t.Error("not-found errors must not retry")
	}
	if !Retryable(Wrap(ErrDeviceComm, "", "", "", nil)) {
		t.Error("device comm errors must retry")
	}
	if !Retryable(Wrap(ErrDeviceFault, "", "", "", nil)) {
		t.Error("device faults must retry")
	}
}
