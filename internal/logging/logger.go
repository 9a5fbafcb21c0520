package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"courier/internal/config"
)

// LogFileName is the daemon's primary log file under paths.log_dir.
const LogFileName = "courier.log"

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	sink, err := buildSink(opts.OutputPaths, opts.ErrorOutputPaths)
	if err != nil {
		return nil, err
	}

	// Caller locations only matter when someone turned on debug output.
	withSource := levelVar.Level() <= slog.LevelDebug

	switch resolveFormat(opts.Format) {
	case "json":
		return slog.New(newJSONHandler(sink, levelVar, withSource)), nil
	case "console":
		return slog.New(newConsoleHandler(sink, levelVar, withSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a logger routed to stdout/stderr plus the daemon log
// file when a log directory is configured.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: "auto"}
	if cfg == nil {
		return New(opts)
	}

	opts.Level = cfg.Logging.Level
	opts.Format = cfg.Logging.Format
	opts.OutputPaths = []string{"stdout"}
	opts.ErrorOutputPaths = []string{"stderr"}
	if dir := cfg.Paths.LogDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(dir, LogFileName)
		opts.OutputPaths = append(opts.OutputPaths, logPath)
		opts.ErrorOutputPaths = append(opts.ErrorOutputPaths, logPath)
	}
	return New(opts)
}

// resolveFormat normalizes the configured format and, for "auto", picks the
// console handler on a terminal and JSON otherwise so piped and
// service-managed output stays machine-readable.
func resolveFormat(format string) string {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized != "" && normalized != "auto" {
		return normalized
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "console"
	}
	return "json"
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// parseLevel falls back to info for unknown or empty level names.
func parseLevel(level string) slog.Level {
	if parsed, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return parsed
	}
	return slog.LevelInfo
}

// buildSink opens every distinct output target once and fans writes out to
// all of them. Empty target lists fall back to the standard streams.
func buildSink(outputPaths, errorPaths []string) (io.Writer, error) {
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}
	if len(errorPaths) == 0 {
		errorPaths = []string{"stderr"}
	}

	seen := make(map[string]struct{}, len(outputPaths)+len(errorPaths))
	var writers []io.Writer
	for _, target := range append(slices.Clone(outputPaths), errorPaths...) {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}

		w, err := openSink(target)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

// openSink maps the special targets stdout and stderr to the process streams
// and opens anything else as an append-mode file, creating parent directories
// as needed.
func openSink(target string) (io.Writer, error) {
	switch target {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(target); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", target, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, withSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   withSource,
		ReplaceAttr: renameCoreAttr,
	})
}

// renameCoreAttr maps slog's built-in record keys onto the stable field names
// the rest of the tooling greps for: ts, level, msg.
func renameCoreAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
		}
		attr.Key = "ts"
	case slog.LevelKey:
		return slog.String("level", strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "msg"
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}

// consoleHandler renders "ts LEVEL component: msg key=value" lines for
// interactive use.
type consoleHandler struct {
	mu        sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, withSource bool) slog.Handler {
	return &consoleHandler{writer: w, level: lvl, addSource: withSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	pairs := make([]pair, 0, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		pairs = appendPairs(pairs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		pairs = appendPairs(pairs, h.groups, attr)
		return true
	})

	var component string
	component, pairs = liftComponent(pairs)

	line := make([]byte, 0, 128+len(pairs)*24)
	line = ts.UTC().AppendFormat(line, time.RFC3339)
	line = append(line, ' ')
	line = append(line, levelText(record.Level)...)
	line = append(line, ' ')
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line = append(line, msg...)
	if h.addSource {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		frame, _ := frames.Next()
		if frame.Function != "" || frame.File != "" || frame.Line != 0 {
			line = append(line, " ["...)
			line = append(line, filepath.Base(frame.File)...)
			line = append(line, ':')
			line = strconv.AppendInt(line, int64(frame.Line), 10)
			line = append(line, ']')
		}
	}
	for _, p := range pairs {
		if p.key == "" {
			continue
		}
		line = append(line, ' ')
		line = append(line, p.key...)
		line = append(line, '=')
		line = append(line, renderValue(p.value)...)
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		attrs:     slices.Clone(h.attrs),
		groups:    slices.Clone(h.groups),
	}
}

type pair struct {
	key   string
	value slog.Value
}

// appendPairs resolves attr, flattens groups into dot-joined keys, and
// appends the resulting key/value pairs to dst.
func appendPairs(dst []pair, prefix []string, attr slog.Attr) []pair {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(slices.Clone(prefix), attr.Key)
		}
		for _, nested := range value.Group() {
			dst = appendPairs(dst, next, nested)
		}
		return dst
	}
	key := attr.Key
	if len(prefix) > 0 && key != "" {
		key = strings.Join(append(slices.Clone(prefix), key), ".")
	}
	return append(dst, pair{key: key, value: value})
}

// liftComponent pulls the first component attribute out of the pair list so
// the handler can print it as the message prefix instead of a key=value.
func liftComponent(pairs []pair) (string, []pair) {
	component := ""
	kept := pairs[:0]
	for _, p := range pairs {
		if p.key == FieldComponent && component == "" {
			component = p.value.Resolve().String()
			continue
		}
		kept = append(kept, p)
	}
	return component, kept
}

// renderValue prints timestamps in UTC and error values by message; every
// other kind follows slog's own scalar formatting.
func renderValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteText(err.Error())
		}
		return quoteText(fmt.Sprint(v.Any()))
	default:
		return quoteText(v.String())
	}
}

// quoteText quotes values containing whitespace, control characters, or the
// key=value delimiters so console lines stay unambiguous.
func quoteText(s string) string {
	if s == "" {
		return `""`
	}
	needsQuoting := strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
	if needsQuoting {
		return strconv.Quote(s)
	}
	return s
}

func levelText(level slog.Level) string {
	if level >= slog.LevelError {
		return "ERROR"
	}
	if level >= slog.LevelWarn {
		return "WARN"
	}
	if level >= slog.LevelInfo {
		return "INFO"
	}
	return "DEBUG"
}
