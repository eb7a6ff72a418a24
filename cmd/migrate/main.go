// Command migrate manages the Freightport PostgreSQL schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/infrastructure/migration"
	"github.com/freightport/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// command is one subcommand. Commands with a migrate func need the database;
// the others only touch files.
type command struct {
	name    string
	args    string
	help    string
	files   func(env *session, args []string) error
	migrate func(m *migration.Migrator, args []string) error
}

type session struct {
	dir string
	log *zap.Logger
}

var commands = []command{
	{name: "up", help: "Apply all pending migrations",
		migrate: func(m *migration.Migrator, _ []string) error { return m.Up() }},
	{name: "down", help: "Roll back all migrations",
		migrate: func(m *migration.Migrator, _ []string) error { return m.Down() }},
	{name: "step", args: "<n>", help: "Apply n migrations, negative rolls back",
		migrate: func(m *migration.Migrator, args []string) error {
			n, err := number(args)
			if err != nil {
				return err
			}
			return m.Steps(n)
		}},
	{name: "goto", args: "<version>", help: "Migrate up or down to a version",
		migrate: func(m *migration.Migrator, args []string) error {
			n, err := number(args)
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("invalid version %d", n)
			}
			return m.GoTo(uint(n))
		}},
	{name: "version", help: "Show the applied version",
		migrate: func(m *migration.Migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err == nil {
				fmt.Printf("version %d (dirty: %t)\n", v, dirty)
			}
			return err
		}},
	{name: "force", args: "<version>", help: "Record a version as applied without running it",
		migrate: func(m *migration.Migrator, args []string) error {
			n, err := number(args)
			if err != nil {
				return err
			}
			return m.Force(n)
		}},
	{name: "drop", args: "-confirm", help: "Drop every table",
		migrate: func(m *migration.Migrator, args []string) error {
			if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
				return errors.New("drop removes every table, rerun as: migrate drop -confirm")
			}
			return m.Drop()
		}},
	{name: "create", args: "<name> [description]", help: "Add an up/down pair to the migrations directory",
		files: create},
	{name: "list", help: "List available migrations", files: list},
}

func main() {
	dir := flag.String("path", "", "read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout", TimeFormat: "2006-01-02 15:04:05"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	err = dispatch(&session{dir: *dir, log: log}, name, args)
	_ = log.Sync()
	if err != nil {
		log.Error("Migration command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

func dispatch(s *session, name string, args []string) error {
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		usage()
		return fmt.Errorf("unknown command %q", name)
	}
	cmd := commands[i]
	if cmd.files != nil {
		return cmd.files(s, args)
	}

	m, closeDB, err := s.open()
	if err != nil {
		return err
	}
	defer closeDB()
	return cmd.migrate(m, args)
}

// open connects with the configured postgres database and builds a migrator
// over the chosen source.
func (s *session) open() (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, nil, fmt.Errorf("versioned migrations target postgres, configured driver is %q", cfg.Database.Driver)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	src := migration.Source{FS: migrations.FS}
	if s.dir != "" {
		src = migration.Source{Dir: s.dir}
	}
	m, err := migration.New(db, src, s.log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() {
		if err := m.Close(); err != nil {
			s.log.Warn("Error closing migrator", zap.Error(err))
		}
	}, nil
}

func create(s *session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate create <name> [description]")
	}
	dir := s.dir
	if dir == "" {
		dir = "migrations"
	}
	f, err := migration.CreateMigration(dir, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	s.log.Info("Migration created", zap.Uint("version", f.Version), zap.String("up", f.UpPath), zap.String("down", f.DownPath))
	return nil
}

func list(s *session, _ []string) error {
	var src fs.FS = migrations.FS
	if s.dir != "" {
		src = os.DirFS(s.dir)
	}
	entries, err := migration.ListMigrations(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("  %06d  %s\n", e.Version, e.Name)
	}
	return nil
}

func number(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing numeric argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func usage() {
	var b strings.Builder
	b.WriteString("Freightport schema migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-30s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
	b.WriteString("\nFlags:\n")
	fmt.Fprint(os.Stdout, b.String())
	flag.PrintDefaults()
	fmt.Println("\nThe connection comes from config.toml or FP_DATABASE_* variables.")
}
