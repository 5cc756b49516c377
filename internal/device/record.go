package device

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// Record is one device from a listing. Records are immutable and only
// valid for the refresh that produced them.
type Record struct {
	Node       string
	Serial     string
	Model      string
	Used       string
	Total      string
	UsedBytes  uint64
	TotalBytes uint64
}

// Usage renders "used / total" the way the listing reports it.
func (r Record) Usage() string {
	return r.Used + " / " + r.Total
}

// UsedPercent is zero when either amount could not be parsed.
func (r Record) UsedPercent() float64 {
	if r.TotalBytes == 0 {
		return 0
	}
	return float64(r.UsedBytes) / float64(r.TotalBytes) * 100
}

// String formats the record as "node | serial | model | usage".
func (r Record) String() string {
	return strings.Join([]string{r.Node, r.Serial, r.Model, r.Usage()}, " | ")
}

// parseAmount accepts amounts such as "50GB" or "1.2TiB". Unparsable
// amounts stay as text with zero bytes.
func parseAmount(s string) uint64 {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return n
}
