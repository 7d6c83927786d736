// Command catalog-ingest imports vendor product dumps into the catalog.
//
// A dump is a gzip-compressed JSON-lines file, one product per line:
//
//	{"sku":"ART-01","name":"...","description":"...","price":"45.00","promo_price":"39.00","stock":20}
//
// Files are processed concurrently. SKUs are deduplicated across all files
// with a bloom filter (first occurrence wins); the filter is approximate, so
// the unique constraint on products.sku backstops the rare false negative.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tsena-dev/backend/internal/storage/postgres"
)

const (
	bloomCapacity   = 10_000_000
	bloomFPR        = 0.0001
	progressEvery   = 10_000
	insertBatchSize = 500
)

const insertProductSQL = `INSERT INTO products (id, vendor_id, sku, name, description, price, promo_price, stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (sku) DO NOTHING`

type dumpProduct struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	PromoPrice  *decimal.Decimal
	Stock       int
}

// seenSKUs is a concurrency-safe approximate membership set.
type seenSKUs struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// addIfNew returns true when the SKU was not seen before and records it.
func (s *seenSKUs) addIfNew(sku string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.TestString(sku) {
		return false
	}
	s.filter.AddString(sku)
	return true
}

func main() {
	var (
		dataDir     string
		databaseURL string
		vendorID    string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz product dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&vendorID, "vendor-id", "", "account ID of the vendor owning the imported products")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if vendorID == "" {
		slog.Error("vendor ID is required: set --vendor-id")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, vendorID); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL, vendorID string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seen := &seenSKUs{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ingestFile(ctx, pool, f, vendorID, seen))
	}
	return g.Wait()
}

func ingestFile(ctx context.Context, pool *pgxpool.Pool, path, vendorID string, seen *seenSKUs) func() error {
	return func() error {
		var read, inserted, skipped uint64
		batch := &pgx.Batch{}

		flush := func() error {
			if batch.Len() == 0 {
				return nil
			}
			br := pool.SendBatch(ctx, batch)
			for i := 0; i < batch.Len(); i++ {
				if _, err := br.Exec(); err != nil {
					_ = br.Close()
					return errors.Wrap(err, "insert batch")
				}
			}
			if err := br.Close(); err != nil {
				return errors.Wrap(err, "close batch")
			}
			batch = &pgx.Batch{}
			return nil
		}

		err := streamGzLines(ctx, path, func(lineNo int, line []byte) error {
			p, err := parseProduct(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
			read++

			if p.SKU == "" || !seen.addIfNew(p.SKU) {
				skipped++
				return nil
			}

			batch.Queue(insertProductSQL,
				uuid.New().String(), vendorID, p.SKU, p.Name, p.Description,
				p.Price, p.PromoPrice, p.Stock)
			inserted++

			if batch.Len() >= insertBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}

			if read%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.String("file", filepath.Base(path)),
					slog.Uint64("read", read),
					slog.Uint64("inserted", inserted),
				)
			}
			return nil
		})
		if err == nil {
			err = flush()
		}
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		slog.Info("file complete",
			slog.String("file", filepath.Base(path)),
			slog.Uint64("read", read),
			slog.Uint64("inserted", inserted),
			slog.Uint64("skipped", skipped),
		)
		return nil
	}
}

// parseProduct decodes one JSON-lines record. Prices arrive as JSON strings
// to keep them exact.
func parseProduct(line []byte) (dumpProduct, error) {
	var p dumpProduct
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sku":
			v, err := d.Str()
			p.SKU = v
			return err
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "description":
			v, err := d.Str()
			p.Description = v
			return err
		case "price":
			v, err := decodePrice(d)
			p.Price = v
			return err
		case "promo_price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := decodePrice(d)
			p.PromoPrice = &v
			return err
		case "stock":
			v, err := d.Int()
			p.Stock = v
			return err
		default:
			return d.Skip()
		}
	})
	return p, err
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

// streamGzLines opens a gzip-compressed file and calls fn for each non-empty
// line with its 1-based line number. Blank lines still count toward the
// numbering so reported positions match the file.
func streamGzLines(ctx context.Context, path string, fn func(lineNo int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(lineNo, scanner.Bytes()); err != nil {
			return err
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}
