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

	"quill/internal/config"
	"quill/internal/daemonctl"
	"quill/internal/ipc"
	"quill/internal/queue"
)

// cliEnv carries the persistent flag values and the lazily loaded config
// that every subcommand shares.
type cliEnv struct {
	socketFlag *string
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCLIEnv(socketFlag, configFlag *string, jsonFlag *bool) *cliEnv {
	return &cliEnv{
		socketFlag: socketFlag,
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

// loadConfig resolves the configuration once per process and caches the
// result, including any failure.
func (c *cliEnv) loadConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// configOrNil is loadConfig for callers that treat a missing config as
// merely a gap in the output.
func (c *cliEnv) configOrNil() *config.Config {
	cfg, _ := c.loadConfig()
	return cfg
}

func (c *cliEnv) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *cliEnv) socketPath() string {
	if c.socketFlag == nil {
		return fallbackSocketPath()
	}
	if strings.TrimSpace(*c.socketFlag) == "" {
		*c.socketFlag = fallbackSocketPath()
	}
	return *c.socketFlag
}

func (c *cliEnv) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *cliEnv) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, describeDialError(err, socket)
	}
	return client, nil
}

// withQueue hands fn a queue facade backed by the daemon when it is
// reachable, and by direct store access otherwise. Maintenance commands keep
// working while the daemon is down.
func (c *cliEnv) withQueue(fn func(queueAPI) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err == nil {
		defer client.Close()
		return fn(&queueIPCAdapter{client: client})
	}
	if !daemonctl.IsDaemonUnavailable(err) {
		return describeDialError(err, socket)
	}

	cfg, cfgErr := c.loadConfig()
	if cfgErr != nil {
		return cfgErr
	}
	store, openErr := queue.Open(cfg)
	if openErr != nil {
		return fmt.Errorf("open queue store: %w", openErr)
	}
	defer store.Close()
	return fn(&queueStoreAdapter{store: store})
}

// describeDialError turns common socket errnos into messages that tell the
// user what to run next instead of leaking raw syscall text.
func describeDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `quill start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

// fallbackSocketPath derives a socket location when no --socket flag was
// given: next to the configured log dir when the config loads, otherwise a
// best-guess under the default data dir or the system temp dir.
func fallbackSocketPath() string {
	if cfg, _, _, err := config.Load(""); err == nil {
		return filepath.Join(cfg.Paths.LogDir, "quill.sock")
	}
	if logDir, err := config.ExpandPath("~/.local/share/quill/logs"); err == nil {
		return filepath.Join(logDir, "quill.sock")
	}
	return filepath.Join(os.TempDir(), "quill.sock")
}

func skipsConfigLoad(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
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
