// Package report defines the report filename convention and the department
// bookkeeping built on it.
package report

import (
	"bufio"
	"os"
	"strings"
)

const (
	// Prefix starts every well-formed report filename.
	Prefix = "report_"
	// Extension ends every report filename.
	Extension = ".xml"
)

// MatchesExtension reports whether name carries the report extension. The
// transfer operation moves every matching entry, whether or not a department
// can be extracted from it.
func MatchesExtension(name string) bool {
	return len(name) > len(Extension) && strings.HasSuffix(name, Extension)
}

// Department extracts the department label from a report filename. The label
// is the substring between the prefix and the first following underscore; if
// no underscore exists it spans up to the extension. Names without the prefix,
// or with nothing between prefix and extension, yield an empty label. An empty
// label means "undetermined department", never an error.
func Department(name string) string {
	rest, ok := strings.CutPrefix(name, Prefix)
	if !ok {
		return ""
	}
	if idx := strings.IndexByte(rest, '_'); idx >= 0 {
		return rest[:idx]
	}
	if trimmed, ok := strings.CutSuffix(rest, Extension); ok {
		return trimmed
	}
	return ""
}

// Missing returns the required departments that have no entry in present.
// Comparison is case-insensitive; the returned labels keep the required
// spelling and order.
func Missing(present, required []string) []string {
	var missing []string
	for _, want := range required {
		found := false
		for _, have := range present {
			if strings.EqualFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}

// HasXMLHeader reports whether the file's first line contains an XML
// declaration. Advisory only; a report missing the declaration still moves
// through the pipeline.
func HasXMLHeader(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	return strings.Contains(scanner.Text(), "<?xml"), nil
}
