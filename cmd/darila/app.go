package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/darila/internal/catalog"
	"github.com/erazemk/darila/internal/config"
	"github.com/erazemk/darila/internal/db"
	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/importer"
	"github.com/erazemk/darila/internal/metrics"
	"github.com/erazemk/darila/internal/store"
)

// app bundles the services shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sql.DB
	uploads  imaging.Uploads
	metrics  *metrics.Metrics
	catalog  *catalog.Service
	importer *importer.Importer
}

// openApp opens the database, makes sure the schema and the admin account
// exist, and wires the catalog services.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	if err := initAdmin(ctx, database, cfg.AdminUser); err != nil {
		database.Close()
		return nil, err
	}

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		database.Close()
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}

	logger.Info("database ready", zap.String("path", cfg.DBPath))

	uploads := imaging.Uploads{Dir: cfg.UploadsDir}
	m := metrics.New()
	images := imaging.NewMaterializer(uploads, cfg.ImageTimeout, cfg.ImageMaxBytes, logger, m)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		uploads:  uploads,
		metrics:  m,
		catalog:  catalog.New(database, uploads, images, logger, m),
		importer: importer.New(database, uploads, images, cfg.ImportFetchers, logger, m),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// initAdmin creates the admin account with a random password when the
// database has no users yet, and prints the credentials once.
func initAdmin(ctx context.Context, database *sql.DB, username string) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateAdmin(ctx, database, username, string(hash)); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed after logging in.")
	fmt.Println()
	return nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
