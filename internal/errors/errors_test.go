package errors_test

import (
	"fmt"
	"testing"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Invalid log level", errFactory.New(errors.ErrInvalidLogLevel).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "Internal error occurred: boom",
		errFactory.Wrap(errors.ErrInternal, fmt.Errorf("boom")).Error())
	assert.Equal(t, "Invalid argument provided: 42",
		errFactory.WithData(errors.ErrInvalidArgument, 42).Error())
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	err := errors.New().New(errors.ErrorCode("some_code"))
	assert.Equal(t, "some_code", err.Error())
}

func TestCodeOfAndHasCode(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrTimeout)
	wrapped := fmt.Errorf("context: %w", inner)

	code, ok := errors.CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, errors.ErrTimeout, code)

	joined := errors.Join(fmt.Errorf("plain"), wrapped)
	assert.True(t, errors.HasCode(joined, errors.ErrTimeout))
	assert.False(t, errors.HasCode(joined, errors.ErrInternal))

	_, ok = errors.CodeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestIsMatchesCode(t *testing.T) {
	errFactory := errors.New()
	err := errFactory.Wrap(errors.ErrAlreadyRunning, fmt.Errorf("pid 12"))

	assert.True(t, errors.Is(err, errFactory.New(errors.ErrAlreadyRunning)))
	assert.False(t, errors.Is(err, errFactory.New(errors.ErrInternal)))
}

func TestWithDataKeepsCode(t *testing.T) {
	err := errors.New().New(errors.ErrReadConfig).WithData("bad toml")
	assert.Equal(t, errors.ErrReadConfig, err.Code())
	assert.Equal(t, "bad toml", err.GetData())
	assert.Contains(t, err.Error(), "Failed to read config file")
}
