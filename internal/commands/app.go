package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cleared-dev/subscan/internal/activity"
	"github.com/cleared-dev/subscan/internal/config"
	"github.com/cleared-dev/subscan/internal/logger"
	"github.com/cleared-dev/subscan/internal/store"
)

var errNoUser = errors.New("no user: pass --user or set user.default in subscan.yaml")

// app holds the global flags and the workspace a command runs against.
type app struct {
	repo    string
	envFile string
	user    string
	debug   bool

	root string
	cfg  *config.Config
	db   *store.DB
}

// open loads the workspace config and opens its database.
func (a *app) open(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	root, err := filepath.Abs(a.repo)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadWorkspace(root, a.envFile)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DBPath(root))
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("db", db.Path()).Msg("opened database")

	a.root, a.cfg, a.db = root, cfg, db
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// userID returns the --user flag, else the configured default.
func (a *app) userID() (string, error) {
	if a.user != "" {
		return a.user, nil
	}
	if a.cfg != nil && a.cfg.User.Default != "" {
		return a.cfg.User.Default, nil
	}
	return "", errNoUser
}

// record appends to the activity log. A failed write is logged and does not
// fail the command; the database change already committed.
func (a *app) record(ctx context.Context, e activity.Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if err := activity.Append(a.root, e); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("writing activity log")
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
