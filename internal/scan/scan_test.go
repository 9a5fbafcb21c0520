package scan_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"courier/internal/logging"
	"courier/internal/scan"
	"courier/internal/services"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanListsRegularFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report_Sales_2024-01-01.xml", "<?xml version=\"1.0\"?>")
	writeFile(t, dir, "report_Warehouse.xml", "<?xml version=\"1.0\"?>")
	writeFile(t, dir, "notes.txt", "scratch")

	scanner := scan.NewScanner(logging.NewNop())
	inv, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Len() != 3 {
		t.Fatalf("expected 3 files, got %d", inv.Len())
	}

	var names []string
	for _, f := range inv.Files() {
		names = append(names, f.Name)
	}
	want := []string{"notes.txt", "report_Sales_2024-01-01.xml", "report_Warehouse.xml"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("file %d: expected %q, got %q", i, name, names[i])
		}
	}
}

func TestScanSkipsDirectoriesAndHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report_Sales.xml", "x")
	writeFile(t, dir, ".hidden.xml", "x")
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	scanner := scan.NewScanner(logging.NewNop())
	inv, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Len() != 1 {
		t.Fatalf("expected 1 file, got %d", inv.Len())
	}
	if _, ok := inv.Lookup("report_Sales.xml"); !ok {
		t.Fatal("expected report_Sales.xml in inventory")
	}
	if _, ok := inv.Lookup(".hidden.xml"); ok {
		t.Fatal("hidden entry must not be inventoried")
	}
}

func TestScanPopulatesMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report_Manufacturing_2024-02-02.xml", "<?xml?>")

	scanner := scan.NewScanner(logging.NewNop())
	inv, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	f, ok := inv.Lookup("report_Manufacturing_2024-02-02.xml")
	if !ok {
		t.Fatal("expected file in inventory")
	}
	if f.Path != path {
		t.Fatalf("expected path %q, got %q", path, f.Path)
	}
	if f.Department != "Manufacturing" {
		t.Fatalf("expected department Manufacturing, got %q", f.Department)
	}
	if f.Size != int64(len("<?xml?>")) {
		t.Fatalf("expected size %d, got %d", len("<?xml?>"), f.Size)
	}
	if f.Owner == "" {
		t.Fatal("expected a non-empty owner")
	}
	if time.Since(f.ModTime) > time.Minute {
		t.Fatalf("mod time looks stale: %v", f.ModTime)
	}
}

func TestScanMissingDirectoryIsScanError(t *testing.T) {
	scanner := scan.NewScanner(logging.NewNop())
	_, err := scanner.Scan(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if !errors.Is(err, services.ErrScan) {
		t.Fatalf("expected ErrScan, got %v", err)
	}
}

func TestDepartmentsAreUniqueAndOrdered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report_Distribution_a.xml", "x")
	writeFile(t, dir, "report_Sales_a.xml", "x")
	writeFile(t, dir, "report_distribution_b.xml", "x")
	writeFile(t, dir, "misc.txt", "x")

	scanner := scan.NewScanner(logging.NewNop())
	inv, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	departments := inv.Departments()
	want := []string{"Distribution", "Sales"}
	if len(departments) != len(want) {
		t.Fatalf("expected %d departments, got %v", len(want), departments)
	}
	for i, dep := range want {
		if departments[i] != dep {
			t.Fatalf("department %d: expected %q, got %q", i, dep, departments[i])
		}
	}
}

func TestLookupMissingFile(t *testing.T) {
	scanner := scan.NewScanner(logging.NewNop())
	inv, err := scanner.Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Len() != 0 {
		t.Fatalf("expected an empty inventory, got %d entries", inv.Len())
	}
	if _, ok := inv.Lookup("report_Sales.xml"); ok {
		t.Fatal("lookup in an empty inventory must miss")
	}
}
