package main

import (
	"context"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

var ddl = []string{
	`DO $$ BEGIN
		CREATE TYPE importance_type AS ENUM ('düşük', 'orta', 'yüksek');
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		CREATE TYPE status_type AS ENUM ('aktif', 'tamamlandı', 'süresi geçti');
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`CREATE TABLE IF NOT EXISTS categories (
		id   SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id             SERIAL PRIMARY KEY,
		title          VARCHAR(100) NOT NULL,
		category_id    INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		importance     importance_type NOT NULL DEFAULT 'orta',
		status         status_type NOT NULL DEFAULT 'aktif',
		image_path     VARCHAR(255),
		trello_card_id VARCHAR(255),
		deadline       TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

var seedCategories = []string{"Genel", "İş", "Okul", "Faturalar", "Kişisel Gelişim"}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("missing DATABASE_URL")
	}

	ctx := context.Background()
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}

	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("schema: %v", err)
		}
	}

	skipSeed := false
	if v, err := strconv.ParseBool(os.Getenv("SKIP_SEED")); err == nil {
		skipSeed = v
	}
	if !skipSeed {
		if err := seed(ctx, db); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	log.Info("storage init complete")
}

// seed replaces the category set, leaving existing todos with a null
// category via the FK's ON DELETE SET NULL.
func seed(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return err
	}
	for _, name := range seedCategories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES ($1)`, name); err != nil {
			return err
		}
	}
	return tx.Commit()
}
