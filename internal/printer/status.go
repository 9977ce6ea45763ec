package printer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Status classifies the device's readiness to print.
type Status string

const (
	StatusReady        Status = "READY"
	StatusMediaOut     Status = "MEDIA_OUT"
	StatusHeadOpen     Status = "HEAD_OPEN"
	StatusUnknownError Status = "UNKNOWN_ERROR"
	StatusCommError    Status = "COMM_ERROR"
)

// Error bit positions in the first hex mask of the ~HQES ERRORS line.
// Media-out takes priority over head-open when both are set.
const (
	errorMaskMediaOut = 0x00000001
	errorMaskHeadOpen = 0x00000004
)

// DeviceStatus is the result of one status probe.
type DeviceStatus struct {
	Status  Status
	Message string
	Ready   bool
}

var hqesLine = regexp.MustCompile(`^\s*([A-Z]+):\s+(\d)\s+([0-9A-Fa-f]+)\s+([0-9A-Fa-f]+)`)

type hqesSections struct {
	errorFlag string
	errorG2   string
	errorG1   string
	warnFlag  string
	warnG2    string
	warnG1    string
}

// parseHQES scans a ~HQES response line by line for the ERRORS and WARNINGS
// sections. The device frames the response in STX/ETX and may emit STX on
// the same line as the first section, so control bytes are stripped before
// matching. Returns false when no ERRORS line is present.
func parseHQES(response string) (hqesSections, bool) {
	sections := hqesSections{
		errorFlag: "0", errorG2: "00000000", errorG1: "00000000",
		warnFlag: "0", warnG2: "00000000", warnG1: "00000000",
	}
	response = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' {
			return -1
		}
		return r
	}, response)
	found := false
	for _, line := range strings.Split(response, "\n") {
		match := hqesLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		switch match[1] {
		case "ERRORS":
			sections.errorFlag, sections.errorG2, sections.errorG1 = match[2], pad8(match[3]), pad8(match[4])
			found = true
		case "WARNINGS":
			sections.warnFlag, sections.warnG2, sections.warnG1 = match[2], pad8(match[3]), pad8(match[4])
		}
	}
	return sections, found
}

func pad8(hex string) string {
	for len(hex) < 8 {
		hex = "0" + hex
	}
	return hex
}

// EvaluateResponse turns a raw ~HQES response into a DeviceStatus. Only the
// ERRORS section determines readiness.
func EvaluateResponse(response string) DeviceStatus {
	sections, found := parseHQES(response)
	if !found {
		return DeviceStatus{Status: StatusUnknownError, Message: "printer response not understood"}
	}
	if sections.errorFlag == "0" {
		return DeviceStatus{Status: StatusReady, Message: "printer ready", Ready: true}
	}

	mask, err := strconv.ParseUint(sections.errorG1, 16, 64)
	if err != nil {
		return DeviceStatus{Status: StatusUnknownError, Message: "status mask parse failure"}
	}
	switch {
	case mask&errorMaskMediaOut != 0:
		return DeviceStatus{Status: StatusMediaOut, Message: "media out"}
	case mask&errorMaskHeadOpen != 0:
		return DeviceStatus{Status: StatusHeadOpen, Message: "print head open"}
	default:
		return DeviceStatus{Status: StatusUnknownError, Message: fmt.Sprintf("unknown device error (mask %s)", sections.errorG1)}
	}
}
