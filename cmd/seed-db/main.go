// Command seed-db loads a small demo dataset for local development: a few
// accounts of each role and a starter catalog. Everything is upserted by
// fixed IDs, so reruns are safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tsena-dev/backend/internal/storage/postgres"
)

type seedAccount struct {
	id    string
	email string
	name  string
	role  string
}

type seedProduct struct {
	id         string
	vendorID   string
	sku        string
	name       string
	desc       string
	price      string
	promoPrice string
	stock      int
	lowStock   int
}

var accounts = []seedAccount{
	{"0b6f2c1e-0000-4000-8000-000000000001", "admin@tsena.local", "Admin", "admin"},
	{"0b6f2c1e-0000-4000-8000-000000000002", "hery@tsena.local", "Hery", "client"},
	{"0b6f2c1e-0000-4000-8000-000000000003", "voahangy@tsena.local", "Voahangy", "client"},
	{"0b6f2c1e-0000-4000-8000-000000000011", "artisanat@tsena.local", "Artisanat Malagasy", "vendor"},
	{"0b6f2c1e-0000-4000-8000-000000000012", "epicerie@tsena.local", "Épicerie du Marché", "vendor"},
}

var products = []seedProduct{
	{
		id: "7d9e4a00-0000-4000-8000-000000000001", vendorID: "0b6f2c1e-0000-4000-8000-000000000011",
		sku: "ART-LAMBA-01", name: "Lamba tissé main", desc: "Tissage traditionnel en coton",
		price: "120.00", stock: 8, lowStock: 2,
	},
	{
		id: "7d9e4a00-0000-4000-8000-000000000002", vendorID: "0b6f2c1e-0000-4000-8000-000000000011",
		sku: "ART-PANIER-01", name: "Panier en raphia", desc: "Panier tressé, anses cuir",
		price: "45.00", promoPrice: "39.00", stock: 20, lowStock: 5,
	},
	{
		id: "7d9e4a00-0000-4000-8000-000000000003", vendorID: "0b6f2c1e-0000-4000-8000-000000000012",
		sku: "EPI-VANILLE-01", name: "Gousses de vanille", desc: "Vanille Bourbon, sachet de 10",
		price: "30.00", stock: 50, lowStock: 10,
	},
	{
		id: "7d9e4a00-0000-4000-8000-000000000004", vendorID: "0b6f2c1e-0000-4000-8000-000000000012",
		sku: "EPI-CAFE-01", name: "Café des hauts plateaux", desc: "Arabica torréfié, 500g",
		price: "18.50", promoPrice: "15.00", stock: 35, lowStock: 10,
	},
}

const (
	upsertAccountSQL = `INSERT INTO accounts (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role`

	upsertProductSQL = `INSERT INTO products (id, vendor_id, sku, name, description, price, promo_price, stock, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, promo_price = EXCLUDED.promo_price,
			stock = EXCLUDED.stock,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			updated_at = now()`
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedAccounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed accounts")
	}
	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool) error {
	for _, a := range accounts {
		if _, err := pool.Exec(ctx, upsertAccountSQL, a.id, a.email, a.name, a.role); err != nil {
			return errors.Wrapf(err, "account %s", a.email)
		}
	}
	slog.Info("accounts seeded", slog.Int("count", len(accounts)))
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range products {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.sku)
		}

		var promo *decimal.Decimal
		if p.promoPrice != "" {
			v, err := decimal.NewFromString(p.promoPrice)
			if err != nil {
				return errors.Wrapf(err, "parse promo price for %s", p.sku)
			}
			promo = &v
		}

		_, err = pool.Exec(ctx, upsertProductSQL,
			p.id, p.vendorID, p.sku, p.name, p.desc, price, promo, p.stock, p.lowStock)
		if err != nil {
			return errors.Wrapf(err, "product %s", p.sku)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}
