package collaborator_test

import (
	"io"
	"strings"
	"testing"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, src collaborator.LineSource) []string {
	t.Helper()
	var lines []string
	for {
		line, err := src.Next()
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestLineSourceSplitsOnNewlineAndCarriageReturn(t *testing.T) {
	input := "first\nsecond\rthird\r\nfourth"
	lines := drain(t, collaborator.NewLineSource(strings.NewReader(input)))

	assert.Equal(t, []string{"first", "second", "third", "fourth"}, lines)
}

func TestLineSourceKeepsBlankLines(t *testing.T) {
	lines := drain(t, collaborator.NewLineSource(strings.NewReader("a\n\nb\n")))
	assert.Equal(t, []string{"a", "", "b"}, lines)
}

func TestLineSourceEmptyInput(t *testing.T) {
	src := collaborator.NewLineSource(strings.NewReader(""))
	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
	_, err = src.Next()
	assert.Equal(t, io.EOF, err, "EOF is sticky")
}

func TestLineSourceStreamsIncrementally(t *testing.T) {
	r, w := io.Pipe()
	src := collaborator.NewLineSource(r)

	go func() {
		_, _ = w.Write([]byte("one\n"))
	}()
	line, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", line, "a line is delivered before the writer closes")

	go func() {
		_, _ = w.Write([]byte("two\r"))
		_ = w.Close()
	}()
	assert.Equal(t, []string{"two"}, drain(t, src))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, collaborator.SplitLines([]byte("x\ny\n")))
	assert.Nil(t, collaborator.SplitLines(nil))
}
