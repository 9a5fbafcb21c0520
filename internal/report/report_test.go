package report_test

import (
	"os"
	"path/filepath"
	"testing"

	"courier/internal/report"
)

func TestDepartment(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"report_Sales_2024-01-01.xml", "Sales"},
		{"report_Sales.xml", "Sales"},
		{"report_Warehouse_q3_final.xml", "Warehouse"},
		{"invoice_2024.xml", ""},
		{"report_.xml", ""},
		{"report_Sales", ""},
		{"Sales.xml", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := report.Department(tc.name); got != tc.want {
			t.Errorf("Department(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMatchesExtension(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"report_Sales.xml", true},
		{"anything.xml", true},
		{"report_Sales.XML", false},
		{"report_Sales.txt", false},
		{".xml", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := report.MatchesExtension(tc.name); got != tc.want {
			t.Errorf("MatchesExtension(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMissing(t *testing.T) {
	required := []string{"Warehouse", "Manufacturing", "Sales", "Distribution"}

	missing := report.Missing([]string{"warehouse", "SALES"}, required)
	if len(missing) != 2 || missing[0] != "Manufacturing" || missing[1] != "Distribution" {
		t.Fatalf("Missing = %v", missing)
	}

	if missing := report.Missing([]string{"Warehouse", "Manufacturing", "Sales", "Distribution"}, required); len(missing) != 0 {
		t.Fatalf("expected complete set, got missing %v", missing)
	}

	if missing := report.Missing(nil, required); len(missing) != len(required) {
		t.Fatalf("empty present should miss everything, got %v", missing)
	}
}

func TestHasXMLHeader(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.xml")
	if err := os.WriteFile(valid, []byte("<?xml version=\"1.0\"?>\n<report/>\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err := report.HasXMLHeader(valid)
	if err != nil || !ok {
		t.Fatalf("HasXMLHeader(valid) = %v, %v", ok, err)
	}

	invalid := filepath.Join(dir, "invalid.xml")
	if err := os.WriteFile(invalid, []byte("just text\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = report.HasXMLHeader(invalid)
	if err != nil || ok {
		t.Fatalf("HasXMLHeader(invalid) = %v, %v", ok, err)
	}

	empty := filepath.Join(dir, "empty.xml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = report.HasXMLHeader(empty)
	if err != nil || ok {
		t.Fatalf("HasXMLHeader(empty) = %v, %v", ok, err)
	}

	if _, err := report.HasXMLHeader(filepath.Join(dir, "absent.xml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
