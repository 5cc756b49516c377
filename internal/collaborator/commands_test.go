package collaborator_test

import (
	"testing"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCommands(t *testing.T) {
	cmds := collaborator.DefaultCommands()

	list := cmds.List()
	assert.Equal(t, "sudo", list.Name)
	assert.Equal(t, []string{"nvme", "list"}, list.Args)

	smart := cmds.SmartLog("/dev/nvme0n1")
	assert.Equal(t, "sudo", smart.Name)
	assert.Equal(t, []string{"nvme", "smart-log", "/dev/nvme0n1"}, smart.Args)

	bench := cmds.WriteBenchmark("/dev/nvme0n1")
	assert.Equal(t, "sudo", bench.Name)
	assert.Equal(t, []string{
		"dd", "if=/dev/zero", "of=/dev/nvme0n1", "bs=1000M", "oflag=direct", "status=progress",
	}, bench.Args)
	assert.Equal(t, "sudo dd if=/dev/zero of=/dev/nvme0n1 bs=1000M oflag=direct status=progress", bench.String())
	assert.True(t, bench.MergeStderr)
	assert.False(t, list.MergeStderr)
}

func TestCommandsWithoutElevation(t *testing.T) {
	cmds := collaborator.Commands{NVMe: "/usr/sbin/nvme", DD: "dd", BlockSize: "64M"}

	list := cmds.List()
	assert.Equal(t, "/usr/sbin/nvme", list.Name)
	assert.Equal(t, []string{"list"}, list.Args)

	bench := cmds.WriteBenchmark("/dev/nvme1n1")
	assert.Equal(t, "dd", bench.Name)
	assert.Contains(t, bench.Args, "bs=64M")
}

func TestCommandsWithMultiWordElevation(t *testing.T) {
	cmds := collaborator.DefaultCommands()
	cmds.Elevate = []string{"sudo", "-n"}

	list := cmds.List()
	assert.Equal(t, "sudo", list.Name)
	assert.Equal(t, []string{"-n", "nvme", "list"}, list.Args)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "nvme", collaborator.Command{Name: "nvme"}.String())
	assert.Equal(t, "nvme smart-log /dev/nvme0n1",
		collaborator.Command{Name: "nvme", Args: []string{"smart-log", "/dev/nvme0n1"}}.String())
}

func TestExitErrorString(t *testing.T) {
	assert.Equal(t, "exit status 1", collaborator.ExitError{Code: 1}.String())
	assert.Equal(t, "exit status 137: killed", collaborator.ExitError{Code: 137, Stderr: "killed"}.String())
	assert.Equal(t, "exit status -1", collaborator.ExitError{Code: -1}.String())
}
