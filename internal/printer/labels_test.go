package printer

import (
	"strings"
	"testing"
	"time"
)

func TestFabricationDate(t *testing.T) {
	ts := time.Date(2026, time.March, 7, 14, 30, 0, 0, time.UTC)
	if got := FabricationDate(ts); got != "07/03/2026" {
		t.Fatalf("FabricationDate = %q, want 07/03/2026", got)
	}
}

func TestRenderIdentityLabel(t *testing.T) {
	zpl := string(RenderIdentityLabel("RW-48v2710012", "aB3xZ9", "07/03/2026"))
	for _, want := range []string{"RW-48v2710012", "Code: aB3xZ9", "Fab: 07/03/2026", "^BQN,2,8", "^XA", "^XZ"} {
		if !strings.Contains(zpl, want) {
			t.Errorf("identity label missing %q", want)
		}
	}
}

func TestRenderMainLabel(t *testing.T) {
	zpl := string(RenderMainLabel("RW-48v2710012", "aB3xZ9"))
	if !strings.Contains(zpl, "RW-48v2710012") || !strings.Contains(zpl, "aB3xZ9") {
		t.Error("main label missing serial or code")
	}
	if !strings.Contains(zpl, "^BQN,2,8") {
		t.Error("main label missing QR field")
	}
}

func TestRenderShippingLabel(t *testing.T) {
	zpl := string(RenderShippingLabel("RW-48v2710012"))
	if !strings.Contains(zpl, "S/N: RW-48v2710012") {
		t.Error("shipping label missing serial line")
	}
	if !strings.Contains(zpl, "^BCN") {
		t.Error("shipping label missing barcode field")
	}
}

func TestRenderCustomQRLabel(t *testing.T) {
	zpl := string(RenderCustomQRLabel("Unit 42", "https://example.test/u/42"))
	if !strings.Contains(zpl, "Unit 42") {
		t.Error("custom QR label missing display text")
	}
	if !strings.Contains(zpl, "^FDLA,https://example.test/u/42") {
		t.Error("custom QR label missing QR data field")
	}
}
