package chunkedfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	reported []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.reported = append(r.reported, fmt.Sprintf(format, args...))
}

func TestSplit_LineNumbersAndExpectations(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	chunks := split("test.sp", "var x: Int = \"hi\"; // ### \"cannot assign\"\n---\nvar y = 1;\nif (1) {} // ### \"condition\" ### \"other\"\n", r)
	require.Empty(t, r.reported)
	require.Len(t, chunks, 2)

	assert.Equal(t, "var x: Int = \"hi\"; // ### \"cannot assign\"", chunks[0].Source)
	assert.Equal(t, "\n\nvar y = 1;\nif (1) {} // ### \"condition\" ### \"other\"\n", chunks[1].Source)
	require.Len(t, chunks[0].want[1], 1)
	require.Len(t, chunks[1].want[4], 2)
}

func TestGotError_ConsumesExpectations(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	chunks := split("test.sp", "a // ### \"one\" ### \"two\"\n", r)
	chunk := chunks[0]

	chunk.GotError(1, "two things")
	chunk.GotError(1, "one thing")
	chunk.Done()
	assert.Empty(t, r.reported)

	chunk.GotError(1, "one again")
	require.Len(t, r.reported, 1)
	assert.Equal(t, "\ntest.sp:1: unexpected error: one again", r.reported[0])
}

func TestGotError_Mismatch(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	chunks := split("test.sp", "a // ### \"want\"\n", r)
	chunk := chunks[0]

	chunk.GotError(1, "got")
	chunk.Done()
	require.Len(t, r.reported, 2)
	assert.Contains(t, r.reported[0], `error "got" does not match any of "want"`)
	assert.Contains(t, r.reported[1], "expected error matching")
}

func TestSplit_BadPattern(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	split("test.sp", "a // ### not-quoted\nb // ### \"(\"\n", r)
	require.Len(t, r.reported, 2)
	assert.Contains(t, r.reported[0], "test.sp:1: not a quoted regexp")
	assert.Contains(t, r.reported[1], "test.sp:2:")
}

func TestRead(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "file.sp")
	require.NoError(t, os.WriteFile(path, []byte("a\r\n---\r\nb\r\n"), 0o644))

	r := &recorder{}
	chunks := Read(path, r)
	require.Empty(t, r.reported)
	require.Len(t, chunks, 2)
	assert.Equal(t, "\n\nb\n", chunks[1].Source)

	assert.Nil(t, Read(filepath.Join(t.TempDir(), "missing.sp"), r))
	assert.Len(t, r.reported, 1)
}
