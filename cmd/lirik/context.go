package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lirik/internal/config"
	"lirik/internal/ipc"
	"lirik/internal/lifecycle"
	"lirik/internal/logging"
)

type commandContext struct {
	configFlag   string
	socketFlag   string
	logLevelFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if s := strings.TrimSpace(c.socketFlag); s != "" {
			cfg.App.SocketPath = s
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel(cfg *config.Config) string {
	if c.logLevelFlag != "" {
		return c.logLevelFlag
	}
	return cfg.App.LogLevel
}

// setupConsoleLogging sends logs to w for commands run from a terminal.
func (c *commandContext) setupConsoleLogging(w io.Writer) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return logging.Setup(c.logLevel(cfg), w, false)
}

// daemonArgs are passed to the spawned daemon so it sees the same config
// and socket as this process.
func (c *commandContext) daemonArgs() []string {
	args := []string{"daemon"}
	if c.configFlag != "" {
		args = append(args, "--config", c.configFlag)
	}
	if c.socketFlag != "" {
		args = append(args, "--socket", c.socketFlag)
	}
	return args
}

func (c *commandContext) manager(cfg *config.Config) *lifecycle.Manager {
	return lifecycle.New(lifecycle.Options{
		SocketPath: cfg.App.SocketPath,
		PIDPath:    cfg.App.PIDPath,
		Args:       c.daemonArgs(),
	})
}

// client talks to the daemon, starting it first if needed.
func (c *commandContext) client() (*ipc.Client, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	return ipc.NewClient(c.manager(cfg)), cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}
