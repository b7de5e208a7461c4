package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-collection/internal/allocation"
	"github.com/ramonehamilton/mtg-collection/internal/cards/scryfall"
	"github.com/ramonehamilton/mtg-collection/internal/config"
	"github.com/ramonehamilton/mtg-collection/internal/mutation"
	"github.com/ramonehamilton/mtg-collection/internal/quickadd"
	"github.com/ramonehamilton/mtg-collection/internal/storage"
)

// app holds what every command needs: configuration, the open database and
// the terminal streams.
type app struct {
	configPath string
	dbPath     string
	debug      bool
	yes        bool

	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: bufio.NewReader(in), out: out, errOut: errOut}
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if a.debug || cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// openDB opens the collection database, applying pending migrations.
func (a *app) openDB() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	dbConfig := storage.DefaultConfig(a.cfg.Database.Path)
	dbConfig.BusyTimeout = a.cfg.BusyTimeout()
	dbConfig.AutoMigrate = true

	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("Opened database", "path", a.cfg.Database.Path)
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", "error", err)
	}
	a.db = nil
}

func (a *app) confirmer() mutation.Confirmer {
	if a.yes {
		return mutation.AlwaysYes
	}
	return &terminalConfirmer{in: a.in, out: a.out}
}

func (a *app) mutationEngine(stack *mutation.UndoStack) (*mutation.Engine, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return mutation.NewEngine(mutation.Config{
		Store:     db,
		Stack:     stack,
		Confirmer: a.confirmer(),
		CopyLimit: a.cfg.Collection.CopyLimit,
		Logger:    a.logger,
	})
}

func (a *app) allocationEngine() (*allocation.Engine, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	repos := db.Repos()
	return allocation.NewEngine(allocation.Config{
		Cards:      repos.Cards,
		Locations:  repos.Locations,
		Collection: repos.Collection,
		Logger:     a.logger,
	})
}

func (a *app) queryParser() (*quickadd.Parser, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	repos := db.Repos()
	return quickadd.NewParser(quickadd.Config{
		Sets:       repos.Sets,
		Cards:      repos.Cards,
		Locations:  repos.Locations,
		Collection: repos.Collection,
		Languages:  a.cfg.Collection.Languages,
	})
}

func (a *app) scryfallClient() *scryfall.Client {
	return scryfall.NewClientWithOptions(scryfall.Options{
		BaseURL:           a.cfg.Scryfall.BaseURL,
		RequestsPerSecond: a.cfg.Scryfall.RequestsPerSecond,
		Timeout:           a.cfg.ScryfallTimeout(),
	})
}
