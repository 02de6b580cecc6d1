package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql
	log "github.com/sirupsen/logrus"

	"github.com/railwayapp/crudkit/internal/environment"
)

// SQLOptions configure the SQL file backend.
type SQLOptions struct {
	Dir   string
	Table string
	Env   *environment.Environment
	Out   io.Writer
	Now   func() time.Time
}

// SQL keeps revisions as <version>_<slug>.up.sql / .down.sql pairs and
// applies them with golang-migrate.
type SQL struct {
	dir   string
	table string
	env   *environment.Environment
	out   io.Writer
	now   func() time.Time
}

// NewSQL returns an SQL file backend.
func NewSQL(opts SQLOptions) *SQL {
	s := &SQL{
		dir:   opts.Dir,
		table: opts.Table,
		env:   opts.Env,
		out:   opts.Out,
		now:   opts.Now,
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Revision writes an empty migration pair. It never connects to a database.
func (s *SQL) Revision(_ context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	slug := Slug(message)
	if slug == "" {
		slug = "revision"
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := s.now().Unix()
	base := fmt.Sprintf("%d_%s", version, slug)
	header := fmt.Sprintf("-- %s\n", strings.TrimSpace(message))
	for _, suffix := range []string{".up.sql", ".down.sql"} {
		path := filepath.Join(s.dir, base+suffix)
		if err := writeNew(path, header); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(s.out, path)
	}
	log.WithFields(log.Fields{"version": version, "dir": s.dir}).Info("created revision")
	return nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Upgrade applies every pending revision.
func (s *SQL) Upgrade(ctx context.Context) error {
	m, err := s.migrator(ctx)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	revisions, err := Revisions(s.dir)
	if err != nil {
		return fmt.Errorf("failed to list revisions: %w", err)
	}
	if len(revisions) == 0 {
		log.WithField("dir", s.dir).Info("no revisions found")
		return s.printVersion(m)
	}

	log.WithField("revisions", len(revisions)).Info("applying migrations")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply (database is up to date)")
	} else if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return s.printVersion(m)
}

// Current prints the applied version and whether it is dirty.
func (s *SQL) Current(ctx context.Context) error {
	m, err := s.migrator(ctx)
	if err != nil {
		return err
	}
	defer closeMigrator(m)
	return s.printVersion(m)
}

func (s *SQL) printVersion(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		_, _ = fmt.Fprintln(s.out, "no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		log.WithField("version", version).Warn("database schema is dirty, manual intervention may be required")
		_, _ = fmt.Fprintf(s.out, "%d (dirty)\n", version)
		return nil
	}
	_, _ = fmt.Fprintln(s.out, version)
	return nil
}

func (s *SQL) migrator(ctx context.Context) (*migrate.Migrate, error) {
	cfg, err := s.env.Database()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("migrations directory %s: %w", s.dir, err)
	}
	source, err := iofs.New(os.DirFS(s.dir), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	driverName, dsn := DSN(cfg)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var driver database.Driver
	switch cfg.Type {
	case environment.Postgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: s.table, DatabaseName: cfg.Name})
	case environment.MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: s.table, DatabaseName: cfg.Name})
	default:
		err = fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create %s driver: %w", cfg.Type, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(cfg.Type), driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{entry: log.WithField("component", "migrate")}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		log.WithError(err).Warn("failed to close migrator")
	}
}

// DSN returns the database/sql driver name and data source name for cfg.
func DSN(cfg environment.Database) (driverName, dsn string) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	if cfg.Type == environment.MySQL {
		c := mysqldriver.NewConfig()
		c.User = cfg.User
		c.Passwd = cfg.Password
		c.Net = "tcp"
		c.Addr = addr
		c.DBName = cfg.Name
		c.MultiStatements = true
		return "mysql", c.FormatDSN()
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     addr,
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=disable",
	}
	return "pgx", u.String()
}

// Slug turns a revision message into a file name fragment.
func Slug(message string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(message)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	slug := strings.TrimRight(b.String(), "_")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "_")
	}
	return slug
}

// Revisions lists the versions present in dir, in ascending order.
func Revisions(dir string) ([]uint64, error) {
	entries, err := fs.Glob(os.DirFS(dir), "*.up.sql")
	if err != nil {
		return nil, err
	}
	var versions []uint64
	for _, name := range entries {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

type migrateLogger struct {
	entry *log.Entry
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.entry.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.entry.Logger.IsLevelEnabled(log.DebugLevel)
}
