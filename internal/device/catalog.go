package device

import (
	"context"
	"strings"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
)

const (
	headerLines = 2

	fieldNode   = 0
	fieldSerial = 1
	fieldModel  = 2
	fieldUsed   = 4
	fieldTotal  = 6
	minFields   = fieldTotal + 1
)

// Listing is the result of one refresh.
type Listing struct {
	Records []Record
	// Skipped counts data lines that were malformed or repeated a node.
	Skipped int
}

// Nodes returns the device nodes in listing order.
func (l Listing) Nodes() []string {
	nodes := make([]string, len(l.Records))
	for i, r := range l.Records {
		nodes[i] = r.Node
	}
	return nodes
}

// Catalog enumerates devices through the listing collaborator.
type Catalog struct {
	executor collaborator.Executor
	commands collaborator.Commands
	log      logger.Logger
}

func NewCatalog(executor collaborator.Executor, commands collaborator.Commands, log logger.Logger) *Catalog {
	return &Catalog{
		executor: executor,
		commands: commands,
		log:      log,
	}
}

// Refresh runs the listing collaborator and parses its output. On failure
// the returned listing is empty and the error carries the stderr text.
func (c *Catalog) Refresh(ctx context.Context) (Listing, error) {
	errFactory := errors.New()

	cmd := c.commands.List()
	result, err := c.executor.Run(ctx, cmd)
	if err != nil {
		stderr := result.Stderr
		if stderr == "" {
			stderr = collaborator.StderrOf(err)
		}
		c.log.Error().Err(err).Str("command", cmd.String()).Str("stderr", stderr).Msg("Device listing failed")
		enumErr := errFactory.Wrap(ErrEnumeration, err)
		if stderr != "" {
			return Listing{}, enumErr.WithData(stderr)
		}
		return Listing{}, enumErr
	}

	listing := Parse(string(result.Stdout))
	c.log.Debug().
		Int("devices", len(listing.Records)).
		Int("skipped", listing.Skipped).
		Msg("Device listing refreshed")
	if listing.Skipped > 0 {
		c.log.Warn().Int("skipped", listing.Skipped).Msg("Skipped malformed device listing lines")
	}

	return listing, nil
}

// Parse reads listing text: two header lines, then one device per
// non-blank line with whitespace separated columns. Only columns 0, 1, 2,
// 4 and 6 are used; 3 and 5 are unit and separator columns.
func Parse(output string) Listing {
	lines := strings.Split(output, "\n")
	if len(lines) <= headerLines {
		return Listing{}
	}

	var listing Listing
	seen := make(map[string]bool)
	for _, line := range lines[headerLines:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		record, ok := parseLine(line)
		if !ok || seen[record.Node] {
			listing.Skipped++
			continue
		}
		seen[record.Node] = true
		listing.Records = append(listing.Records, record)
	}

	return listing
}

func parseLine(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		return Record{}, false
	}

	return Record{
		Node:       fields[fieldNode],
		Serial:     fields[fieldSerial],
		Model:      fields[fieldModel],
		Used:       fields[fieldUsed],
		Total:      fields[fieldTotal],
		UsedBytes:  parseAmount(fields[fieldUsed]),
		TotalBytes: parseAmount(fields[fieldTotal]),
	}, true
}
