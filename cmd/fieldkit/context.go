package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"fieldkit/internal/config"
	"fieldkit/internal/ipc"
	"fieldkit/internal/store"
)

const socketName = "fieldkit.sock"

// commandContext is shared across the command tree. It resolves the config
// file at most once per invocation and owns socket discovery, so commands
// never parse flags or paths themselves.
type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var path string
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

// socketPath resolves the daemon socket, writing the default back into the
// flag so child processes launched with the same flags agree on the path.
func (c *commandContext) socketPath() string {
	if c.socketFlag == nil {
		return defaultSocketPath()
	}
	if strings.TrimSpace(*c.socketFlag) == "" {
		*c.socketFlag = defaultSocketPath()
	}
	return *c.socketFlag
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// withStore hands fn an IPC client when the daemon is reachable, otherwise a
// direct store handle so read-only commands keep working offline.
func (c *commandContext) withStore(ctx context.Context, fn func(*ipc.Client, *store.Store) error) error {
	client, err := c.dialClient()
	if err == nil {
		defer client.Close()
		return fn(client, nil)
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	st, openErr := store.Open(cfg)
	if openErr != nil {
		return fmt.Errorf("daemon unreachable and store unavailable: %w", openErr)
	}
	defer st.Close()
	return fn(nil, st)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err == nil {
		return client, nil
	}
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return nil, fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `fieldkit start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return nil, fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
}

// defaultSocketPath puts the socket beside the daemon logs. When no config
// loads, the conventional data directory is tried, then the system temp dir.
func defaultSocketPath() string {
	if cfg, _, _, err := config.Load(""); err == nil {
		return filepath.Join(cfg.Paths.LogDir, socketName)
	}
	if logDir, err := config.ExpandPath("~/.local/share/fieldkit/logs"); err == nil {
		return filepath.Join(logDir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
