// Package scan produces point-in-time inventories of the managed
// directories. Inventories are immutable once returned; the change-detection
// engine compares successive ones and the pipeline consumes them directly.
package scan

import (
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"courier/internal/logging"
	"courier/internal/report"
	"courier/internal/services"
)

// File is one regular file observed during a scan.
type File struct {
	Path       string
	Name       string
	Department string
	ModTime    time.Time
	Size       int64
	Owner      string
}

// Inventory is the set of files observed in one directory at one instant.
// Files keep scan order (lexical, from os.ReadDir); names are unique.
type Inventory struct {
	Dir     string
	TakenAt time.Time
	files   []File
	index   map[string]int
}

func newInventory(dir string, taken time.Time) *Inventory {
	return &Inventory{Dir: dir, TakenAt: taken, index: make(map[string]int)}
}

func (inv *Inventory) add(f File) {
	if _, exists := inv.index[f.Name]; exists {
		return
	}
	inv.index[f.Name] = len(inv.files)
	inv.files = append(inv.files, f)
}

// Files returns the observed files in scan order. Callers must not mutate the
// returned slice.
func (inv *Inventory) Files() []File {
	return inv.files
}

// Lookup returns the file with the given name, if observed.
func (inv *Inventory) Lookup(name string) (File, bool) {
	idx, ok := inv.index[name]
	if !ok {
		return File{}, false
	}
	return inv.files[idx], true
}

// Len returns the number of observed files.
func (inv *Inventory) Len() int {
	return len(inv.files)
}

// Departments returns the unique department labels present in the inventory,
// in scan order. Files without a determinable department are skipped.
func (inv *Inventory) Departments() []string {
	var present []string
	seen := make(map[string]struct{})
	for _, f := range inv.files {
		if f.Department == "" {
			continue
		}
		key := strings.ToLower(f.Department)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		present = append(present, f.Department)
	}
	return present
}

// Scanner lists directories into Inventories. It holds no state besides its
// logger; every Scan is a fresh read.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner returns a Scanner that logs skipped entries through logger.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logging.NewComponentLogger(logger, "scanner")}
}

// Scan lists dir and returns its Inventory. Directories and hidden entries
// are skipped. An unreadable directory fails the scan; an unreadable entry is
// logged and skipped so one bad file never aborts the whole scan.
func (s *Scanner) Scan(dir string) (*Inventory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrScan, "scanner", "read directory", dir, err)
	}

	inv := newInventory(dir, time.Now())
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("skipping unreadable entry",
				logging.String(logging.FieldDirectory, dir),
				logging.String(logging.FieldFile, name),
				logging.Error(services.Wrap(services.ErrEntryStat, "scanner", "stat entry", name, err)),
			)
			continue
		}
		inv.add(File{
			Path:       filepath.Join(dir, name),
			Name:       name,
			Department: report.Department(name),
			ModTime:    info.ModTime(),
			Size:       info.Size(),
			Owner:      OwnerName(info),
		})
	}
	return inv, nil
}

// OwnerName resolves the owning username of a file, falling back to the
// numeric uid when the lookup fails and to "unknown" when the platform
// provides no owner at all.
func OwnerName(info os.FileInfo) string {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "unknown"
	}
	uid := strconv.FormatUint(uint64(stat.Uid), 10)
	if account, err := user.LookupId(uid); err == nil && account.Username != "" {
		return account.Username
	}
	return uid
}
