package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/preskrba/internal/api"
	"github.com/erazemk/preskrba/internal/audit"
	"github.com/erazemk/preskrba/internal/auth"
	"github.com/erazemk/preskrba/internal/config"
	"github.com/erazemk/preskrba/internal/db"
	"github.com/erazemk/preskrba/internal/model"
	"github.com/erazemk/preskrba/internal/store"
)

// levelRouter is a slog.Handler that sends ERROR and above to stderr and the
// rest to stdout.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{stdout: lr.stdout.WithAttrs(attrs), stderr: lr.stderr.WithAttrs(attrs)}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{stdout: lr.stdout.WithGroup(name), stderr: lr.stderr.WithGroup(name)}
}

// setupLogger installs the default logger. With a log path, every level is
// also appended to that file. The returned func closes the file.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	stdoutW, stderrW := io.Writer(os.Stdout), io.Writer(os.Stderr)
	cleanup := func() {}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(&levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(os.Stdout, config.Usage)
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n%s", err, config.Usage)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	_, statErr := os.Stat(cfg.DB)
	fresh := os.IsNotExist(statErr)

	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}

	if fresh {
		password, err := createAdmin(ctx, database, cfg.Admin)
		if err != nil {
			database.Close()
			os.Remove(cfg.DB)
			return err
		}
		printInitResult(cfg.DB, cfg.Admin, password)
	}
	if err := ensureWarehouse(ctx, database, cfg.Warehouse); err != nil {
		return err
	}

	if n, err := store.PurgeExpiredTokens(ctx, database, time.Now()); err != nil {
		slog.Warn("failed to purge expired tokens", "error", err)
	} else if n > 0 {
		slog.Info("purged expired tokens", "count", n)
	}

	slog.Info("database ready", "path", cfg.DB)

	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	events := audit.NewAsync(audit.Multi{
		audit.Logger{Log: slog.Default()},
		audit.Metrics{},
	}, cfg.AuditBuffer, slog.Default())
	defer events.Close()

	router := api.NewRouter(api.Options{
		DB:     database,
		Issuer: auth.NewIssuer(secret, cfg.TokenTTL),
		Audit:  events,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "warehouse", cfg.Warehouse.Code)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	<-stopped

	slog.Info("server stopped, closing database")
	return nil
}

// createAdmin creates the first admin account with a random password.
func createAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin, nil); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// ensureWarehouse creates the central warehouse unless one exists.
func ensureWarehouse(ctx context.Context, database *sql.DB, wh config.WarehouseConfig) error {
	existing, err := store.GetWarehouse(ctx, database)
	if err != nil {
		return fmt.Errorf("loading warehouse: %w", err)
	}
	if existing != nil {
		return nil
	}

	loc, err := store.CreateLocation(ctx, database, wh.Name, wh.Code, model.LocationTypeWarehouse)
	if err != nil {
		return fmt.Errorf("creating warehouse: %w", err)
	}
	slog.Info("warehouse created", "name", loc.Name, "code", loc.Code)
	return nil
}

func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println()
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
