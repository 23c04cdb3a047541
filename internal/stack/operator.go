package stack

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/aelpxy/searxops/internal/config"
	"github.com/aelpxy/searxops/internal/lock"
	"github.com/aelpxy/searxops/internal/logging"
	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/lucsky/cuid"
	"github.com/rs/zerolog"
)

var ErrAborted = errors.New("operation aborted by operator")

type Operator struct {
	cfg      *config.Config
	runtime  Runtime
	compose  Compose
	store    *snapshot.Store
	git      GitSyncer
	tools    ToolChecker
	reporter Reporter
	now      func() time.Time
	newID    func() string
	version  string
	log      zerolog.Logger
}

type Option func(*Operator)

func WithGit(g GitSyncer) Option {
	return func(o *Operator) { o.git = g }
}

func WithTools(t ToolChecker) Option {
	return func(o *Operator) { o.tools = t }
}

func WithReporter(r Reporter) Option {
	return func(o *Operator) {
		if r != nil {
			o.reporter = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Operator) { o.now = now }
}

func WithVersion(v string) Option {
	return func(o *Operator) { o.version = v }
}

func NewOperator(cfg *config.Config, rt Runtime, compose Compose, opts ...Option) *Operator {
	o := &Operator{
		cfg:      cfg,
		runtime:  rt,
		compose:  compose,
		store:    snapshot.NewStore(cfg.BackupDir),
		reporter: nopReporter{},
		now:      time.Now,
		newID:    cuid.New,
		version:  "dev",
		log:      logging.Component("stack"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Operator) Store() *snapshot.Store {
	return o.store
}

func (o *Operator) acquire() (*lock.Lock, error) {
	l, err := lock.Acquire(o.store.LockPath(), o.cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	o.log.Debug().Str("path", l.Path()).Msg("lock acquired")
	return l, nil
}

func (o *Operator) configEntries() []snapshot.ConfigEntry {
	return []snapshot.ConfigEntry{
		{Name: "docker-compose.yaml", Live: o.cfg.ComposePath(), Required: true},
		{Name: "Caddyfile", Live: o.cfg.StackPath(o.cfg.Caddyfile)},
		{Name: ".env", Live: o.cfg.StackPath(o.cfg.EnvFile)},
		{Name: "searxng", Live: o.cfg.StackPath(o.cfg.SettingsDir)},
	}
}

func (o *Operator) requireComposeFile() error {
	path := o.cfg.ComposePath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", snapshot.ErrComposeFileMissing, path)
		}
		return err
	}
	return nil
}

func operatorName() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
