package telemetry

import (
	"strconv"
	"strings"
	"time"
)

// Field names of interest in the health-log output. Matching is a
// case-sensitive substring test.
const (
	fieldTemperature     = "temperature"
	fieldCriticalWarning = "critical_warning"
)

// Snapshot is the latest known health state of one device.
type Snapshot struct {
	Node string
	At   time.Time

	// Lines holds every retained line in output order.
	Lines               []string
	TemperatureLine     string
	CriticalWarningLine string

	// Parsed values; the Has flags are false when the line was missing or
	// not in "name : value" form.
	TemperatureC       int
	HasTemperature     bool
	CriticalWarning    int64
	HasCriticalWarning bool

	// Err is set when the probe failed. Telemetry fields are then empty.
	Err error
	// Stale marks a snapshot carried over from an earlier tick because the
	// device's probe had not resolved in time.
	Stale bool
}

// Text is the retained lines joined in their original order.
func (s Snapshot) Text() string {
	return strings.Join(s.Lines, "\n")
}

// Warning reports a non-zero critical_warning bitmap.
func (s Snapshot) Warning() bool {
	return s.HasCriticalWarning && s.CriticalWarning != 0
}

// parseHealthLog keeps only temperature and critical-warning lines.
func parseHealthLog(node string, lines []string, at time.Time) Snapshot {
	snap := Snapshot{Node: node, At: at}

	for _, line := range lines {
		isTemp := strings.Contains(line, fieldTemperature)
		isWarn := strings.Contains(line, fieldCriticalWarning)
		if !isTemp && !isWarn {
			continue
		}
		snap.Lines = append(snap.Lines, line)

		if isTemp && snap.TemperatureLine == "" {
			snap.TemperatureLine = line
			snap.TemperatureC, snap.HasTemperature = parseTemperature(line)
		}
		if isWarn && snap.CriticalWarningLine == "" {
			snap.CriticalWarningLine = line
			snap.CriticalWarning, snap.HasCriticalWarning = parseWarning(line)
		}
	}

	return snap
}

// fieldValue returns the text after the first colon.
func fieldValue(line string) (string, bool) {
	_, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// parseTemperature reads the leading integer of "temperature : 35 C (308 Kelvin)".
func parseTemperature(line string) (int, bool) {
	value, ok := fieldValue(line)
	if !ok {
		return 0, false
	}
	end := 0
	if end < len(value) && value[end] == '-' {
		end++
	}
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseWarning accepts decimal or 0x-prefixed bitmaps.
func parseWarning(line string) (int64, bool) {
	value, ok := fieldValue(line)
	if !ok {
		return 0, false
	}
	if fields := strings.Fields(value); len(fields) > 0 {
		value = fields[0]
	}
	n, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
