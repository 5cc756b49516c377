package device

import "github.com/Gimel12/nvme-tool-ubuntu/internal/errors"

const (
	// ErrEnumeration means the listing collaborator could not run or
	// exited with an error. The catalog for that refresh is empty.
	ErrEnumeration = errors.ErrorCode("device_enumeration_failed")
)

func init() {
	errors.RegisterMessage(ErrEnumeration, "Failed to enumerate NVMe devices")
}
