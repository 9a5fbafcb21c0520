package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"courier/internal/config"
	"courier/internal/control"
)

// commandContext carries the persistent flag values into subcommands and
// memoizes the loaded configuration so every command sees the same instance.
type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{socketFlag: socketFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	path := ""
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// socketPath resolves the control socket, writing the default back into the
// flag so later reads and help output agree on the value.
func (c *commandContext) socketPath() string {
	if c.socketFlag == nil {
		return defaultSocketPath()
	}
	if current := strings.TrimSpace(*c.socketFlag); current != "" {
		return current
	}
	*c.socketFlag = defaultSocketPath()
	return *c.socketFlag
}

// withClient dials the daemon control socket, runs fn, and always closes the
// connection afterwards.
func (c *commandContext) withClient(fn func(*control.Client) error) error {
	socket := c.socketPath()
	client, err := control.Dial(socket)
	if err != nil {
		return describeDialFailure(socket, err)
	}
	defer client.Close()
	return fn(client)
}

// describeDialFailure turns the common connection errors into actionable
// messages instead of raw syscall noise.
func describeDialFailure(socket string, err error) error {
	if errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) {
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `courier start`", socket)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

// defaultSocketPath mirrors the daemon's own socket resolution so the CLI
// finds a daemon started without explicit flags.
func defaultSocketPath() string {
	if cfg, _, _, err := config.Load(""); err == nil {
		return cfg.SocketPath()
	}
	runtimeDir, err := config.ExpandPath("~/.local/share/courier/run")
	if err != nil {
		return filepath.Join(os.TempDir(), "courier.sock")
	}
	return filepath.Join(runtimeDir, "courier.sock")
}

// shouldSkipConfig reports whether cmd or any ancestor opted out of config
// loading, which commands like version and config init use to run without a
// readable configuration file.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
