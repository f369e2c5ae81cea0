package application

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

var ErrNoPool = errors.New("migrations: database pool is not configured")

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	schemas []*embed.FS
}

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &migrationManager{pool: pool, logger: logger}
}

func (m *migrationManager) RegisterSchema(fs ...*embed.FS) {
	m.schemas = append(m.schemas, fs...)
}

// Run applies every registered schema with goose. Each embedded FS must keep its
// versioned .sql files in a single directory.
func (m *migrationManager) Run(ctx context.Context) error {
	if m.pool == nil {
		return ErrNoPool
	}
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	for _, schema := range m.schemas {
		dir, err := schemaDir(schema)
		if err != nil {
			return err
		}
		sub, err := fs.Sub(schema, dir)
		if err != nil {
			return err
		}
		provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
		if err != nil {
			return err
		}
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			m.logger.WithFields(logrus.Fields{
				"migration": r.Source.Path,
				"duration":  r.Duration,
			}).Info("migration applied")
		}
	}
	return nil
}

func schemaDir(fsys fs.FS) (string, error) {
	files, err := listFiles(fsys, ".")
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".sql") {
			return path.Dir(f), nil
		}
	}
	return "", errors.New("migrations: no .sql files in schema")
}
