package benchmark

import "time"

// Sample is one throughput reading parsed from a benchmark's progress
// output. Seq starts at 1 and increases by one within a session.
type Sample struct {
	Device  string
	Session string
	Seq     uint64
	At      time.Time
	Speed   string
}

func (s Sample) String() string {
	return s.Device + ": " + s.Speed
}

// Sink receives samples in the order the collaborator produced them. It is
// called from the session's goroutine and must not block for long.
type Sink func(Sample)
