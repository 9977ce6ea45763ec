package printer

import "testing"

const readyResponse = "\x02PRINTER STATUS\r\n ERRORS:   0 00000000 00000000\r\n WARNINGS: 0 00000000 00000000\r\n\x03"

func TestEvaluateResponse(t *testing.T) {
	cases := []struct {
		name     string
		response string
		status   Status
		ready    bool
	}{
		{"ready", readyResponse, StatusReady, true},
		{
			"media out",
			"\x02 ERRORS:   1 00000000 00000001\r\n\x03",
			StatusMediaOut, false,
		},
		{
			"head open",
			"\x02 ERRORS:   1 00000000 00000004\r\n\x03",
			StatusHeadOpen, false,
		},
		{
			"media out wins over head open",
			"\x02 ERRORS:   1 00000000 00000005\r\n\x03",
			StatusMediaOut, false,
		},
		{
			"unknown error bit",
			"\x02 ERRORS:   1 00000000 00080000\r\n\x03",
			StatusUnknownError, false,
		},
		{
			"short mask is padded",
			"\x02 ERRORS:   1 0 1\r\n\x03",
			StatusMediaOut, false,
		},
		{
			"no errors section",
			"\x02PRINTER STATUS\r\n WARNINGS: 0 00000000 00000000\r\n\x03",
			StatusUnknownError, false,
		},
		{"garbage", "hello world", StatusUnknownError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateResponse(tc.response)
			if got.Status != tc.status {
				t.Errorf("status = %s, want %s (message %q)", got.Status, tc.status, got.Message)
			}
			if got.Ready != tc.ready {
				t.Errorf("ready = %v, want %v", got.Ready, tc.ready)
			}
		})
	}
}

func TestEvaluateResponseIgnoresWarnings(t *testing.T) {
	response := "\x02 ERRORS:   0 00000000 00000000\r\n WARNINGS: 1 00000000 00000002\r\n\x03"
	got := EvaluateResponse(response)
	if !got.Ready {
		t.Fatalf("warnings must not affect readiness, got %s", got.Status)
	}
}
