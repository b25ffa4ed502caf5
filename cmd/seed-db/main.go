// Command seed-db applies the schema, creates the admin account and loads a
// product catalog.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/repository"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`
}

type options struct {
	databaseURL   string
	productsFile  string
	adminEmail    string
	adminPassword string
	adminName     string
	bcryptCost    int
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to a products JSON file, optionally .gz; empty uses the built-in catalog")
	flag.StringVar(&opts.adminEmail, "admin-email", "", "admin e-mail (or STORE_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "admin password (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&opts.adminName, "admin-name", "Administrator", "admin display name")
	flag.IntVar(&opts.bcryptCost, "bcrypt-cost", 0, "bcrypt cost, 0 for the library default")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	opts.databaseURL = firstNonEmpty(opts.databaseURL, os.Getenv("STORE_DATABASE_URL"), os.Getenv("DATABASE_URL"))
	opts.adminEmail = firstNonEmpty(opts.adminEmail, os.Getenv("STORE_SEED_ADMIN_EMAIL"))
	opts.adminPassword = firstNonEmpty(opts.adminPassword, os.Getenv("STORE_SEED_ADMIN_PASSWORD"))
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if opts.adminEmail != "" {
		users := user.NewService(repository.NewUserRepository(pool), opts.bcryptCost)
		admin, err := users.EnsureAdmin(ctx, user.RegisterInput{
			Email:    opts.adminEmail,
			Password: opts.adminPassword,
			Name:     opts.adminName,
		})
		if err != nil {
			return errors.Wrap(err, "ensure admin")
		}
		lg.Info("Admin account ready", zap.String("id", admin.ID), zap.String("email", admin.Email))
	} else {
		lg.Warn("No admin e-mail given, skipping admin account")
	}

	products, err := loadCatalog(opts.productsFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	lg.Info("Upserting products", zap.Int("count", len(products)))

	repo := repository.NewProductRepository(pool)
	for i := range products {
		p := &products[i]
		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return nil
}

// loadCatalog reads path, or the embedded catalog when path is empty.
func loadCatalog(path string) ([]product.Product, error) {
	if path == "" {
		return readCatalog(bytes.NewReader(db.SeedProducts), false)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()
	return readCatalog(f, strings.HasSuffix(path, ".gz"))
}

// readCatalog parses a JSON array of products. Products without an id get a
// random one; prices are rounded to cents.
func readCatalog(r io.Reader, gzipped bool) ([]product.Product, error) {
	if gzipped {
		zr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var items []productJSON
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	out := make([]product.Product, 0, len(items))
	for _, it := range items {
		if it.Name == "" {
			return nil, errors.Errorf("product %q has no name", it.ID)
		}
		if it.Price.IsNegative() || it.Stock < 0 {
			return nil, errors.Wrapf(product.ErrInvalid, "product %q", it.Name)
		}
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, product.Product{
			ID:          id,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price.Round(2),
			Stock:       it.Stock,
			ImageURL:    it.ImageURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
