package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrScan           = errors.New("scan error")
	ErrEntryStat      = errors.New("entry stat error")
	ErrTransfer       = errors.New("transfer error")
	ErrLock           = errors.New("lock error")
	ErrChannelWrite   = errors.New("channel write error")
	ErrChannelFraming = errors.New("channel framing error")
	ErrConfiguration  = errors.New("configuration error")
	ErrStartup        = errors.New("startup failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification with errors.Is. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransfer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsStartup reports whether err carries the startup-fatal marker. The daemon
// refuses to enter its run loop when this returns true; every other error
// class is logged and survived.
func IsStartup(err error) bool {
	return errors.Is(err, ErrStartup)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
