package app

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// RunMigrations applies the embedded schema migrations. goose keeps its own
// version table, so calling this on every startup is safe.
func RunMigrations(ctx context.Context, log *slog.Logger, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return err
	}
	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return err
	}

	log.Info("db.migrate", "from", before, "to", after)
	return nil
}
