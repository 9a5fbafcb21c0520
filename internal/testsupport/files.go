package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteReport drops a report fixture into dir and returns its path.
func WriteReport(t testing.TB, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// XMLReport is a minimal well-formed report body for fixtures.
const XMLReport = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<report/>\n"

// Touch pins both timestamps of path to when.
func Touch(t testing.TB, path string, when time.Time) {
	t.Helper()

	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
