package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteRecording fills the target path with the requested number of bytes so
// size-gated code paths can be exercised. A size <= 0 writes a single byte.
func WriteRecording(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	block := bytes.Repeat([]byte{0x42}, 32*1024)
	for remaining := size; remaining > 0; {
		n := int64(len(block))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(block[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
}
