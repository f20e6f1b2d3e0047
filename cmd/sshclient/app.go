package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/term"

	sshclient "github.com/vigihdev/ssh-client"
	"github.com/vigihdev/ssh-client/internal/config"
)

// app carries flag values and the collaborators commands share.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile     string
	connection     string
	noInteraction  bool
	logLevel       string
	resultJSONFile string

	localFs    afero.Fs
	dial       sshclient.DialFunc
	isTerminal func() bool
	confirm    func(label string) (bool, error)

	log     sshclient.Logger
	cfg     *config.File
	manager *sshclient.ConnectionManager
}

func newApp() *app {
	return &app{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		localFs:    afero.NewOsFs(),
		dial:       sshclient.Dial,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		confirm:    promptConfirm,
	}
}

func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// initLogger builds a console logger on stderr at level.
func (a *app) initLogger(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	a.log = sshclient.NewZerologLogger(l)
	return nil
}

// loadConfig reads the configuration once. The configured log level
// applies unless --log-level was given.
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(config.Options{ConfigFile: a.configFile})
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logLevel == "" && cfg.Defaults.LogLevel != "" {
		if err := a.initLogger(cfg.Defaults.LogLevel); err != nil {
			return err
		}
	}
	if cfg.Source != "" {
		a.log.Debugf("using config file %s", cfg.Source)
	}
	return nil
}

func (a *app) connectionName() string {
	name := a.connection
	if name == "" {
		name = a.cfg.Defaults.Connection
	}
	return strings.ToLower(name)
}

// open returns the selected connection. It stays open until close.
func (a *app) open(ctx context.Context) (sshclient.Connection, error) {
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	if a.manager == nil {
		a.manager = sshclient.NewConnectionManager(a.cfg.SSHConfigs(a.log), 0, sshclient.WithDialer(a.dial))
	}

	name := a.connectionName()
	a.log.Debugf("opening connection %q", name)
	return a.manager.Get(ctx, name)
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
}

// confirmFunc asks before creating local directories, but only on an
// interactive terminal without -n.
func (a *app) confirmFunc() sshclient.ConfirmFunc {
	if a.noInteraction || a.isTerminal == nil || !a.isTerminal() {
		return nil
	}
	return func(dir string) bool {
		ok, err := a.confirm(fmt.Sprintf("Directory %s does not exist. Create it", dir))
		if err != nil {
			a.log.Warnf("confirmation failed: %v", err)
			return false
		}
		return ok
	}
}
