package collaborator

import "strings"

// Command is an argv ready to execute.
type Command struct {
	Name string
	Args []string

	// MergeStderr routes the error stream into Lines as well. It is still
	// captured for Stderr.
	MergeStderr bool
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Commands builds the collaborator command lines. Elevate is prepended to
// every command (sudo by default); leave it empty when already root.
type Commands struct {
	Elevate   []string
	NVMe      string
	DD        string
	BlockSize string
}

// DefaultCommands matches a stock Ubuntu host with nvme-cli installed.
func DefaultCommands() Commands {
	return Commands{
		Elevate:   []string{"sudo"},
		NVMe:      "nvme",
		DD:        "dd",
		BlockSize: "1000M",
	}
}

// List enumerates NVMe devices.
func (c Commands) List() Command {
	return c.elevated(c.NVMe, "list")
}

// SmartLog fetches the health log of one device.
func (c Commands) SmartLog(node string) Command {
	return c.elevated(c.NVMe, "smart-log", node)
}

// WriteBenchmark writes zeros straight to the raw device, bypassing the
// page cache, with progress reporting on. dd prints progress on stderr.
func (c Commands) WriteBenchmark(node string) Command {
	cmd := c.elevated(c.DD,
		"if=/dev/zero",
		"of="+node,
		"bs="+c.BlockSize,
		"oflag=direct",
		"status=progress",
	)
	cmd.MergeStderr = true
	return cmd
}

func (c Commands) elevated(name string, args ...string) Command {
	if len(c.Elevate) == 0 {
		return Command{Name: name, Args: args}
	}
	argv := make([]string, 0, len(c.Elevate)+len(args))
	argv = append(argv, c.Elevate[1:]...)
	argv = append(argv, name)
	argv = append(argv, args...)
	return Command{Name: c.Elevate[0], Args: argv}
}
