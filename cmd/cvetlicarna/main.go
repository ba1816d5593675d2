package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/cvetlicarna/internal/config"
	"github.com/erazemk/cvetlicarna/internal/db"
	"github.com/erazemk/cvetlicarna/internal/engine"
	"github.com/erazemk/cvetlicarna/internal/gateway"
	"github.com/erazemk/cvetlicarna/internal/model"
	"github.com/erazemk/cvetlicarna/internal/notify"
	"github.com/erazemk/cvetlicarna/internal/payment"
	"github.com/erazemk/cvetlicarna/internal/session"
	"github.com/erazemk/cvetlicarna/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
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
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("cvetlicarna", flag.ContinueOnError)

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var seed bool
	fs.BoolVar(&seed, "seed", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: cvetlicarna [flags]

Configuration is read from the environment (and .env if present):
  DB_PATH, ADDR, ADMIN_IDS, JWT_SECRET, CONNECTOR_SECRET_HASH,
  PAYMENT_PROVIDER_URL, REDIS_ADDR, KAFKA_BROKER, KAFKA_TOPIC

Flags:
  -seed                   insert demo bouquets and continue
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	if seed {
		if err := seedCatalog(context.Background(), database); err != nil {
			slog.Error("failed to seed catalog", "error", err)
			os.Exit(1)
		}
		slog.Info("demo catalog seeded")
	}

	// Without a configured secret, connectors could never authenticate, so
	// generate one for this run and tell the operator how to pin it.
	secretHash := cfg.ConnectorSecretHash
	if secretHash == "" {
		secret, hash, err := generateConnectorSecret()
		if err != nil {
			slog.Error("failed to generate connector secret", "error", err)
			os.Exit(1)
		}
		secretHash = hash
		fmt.Printf("Connector secret (valid for this run): %s\n", secret)
		fmt.Printf("Set CONNECTOR_SECRET_HASH=%s to keep it across restarts.\n\n", hash)
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = randomHex(32)
		if err != nil {
			slog.Error("failed to generate JWT secret", "error", err)
			os.Exit(1)
		}
		slog.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisStore := session.NewRedis(cfg.RedisAddr, 0)
		defer redisStore.Close()
		sessions = redisStore
		slog.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemory()
	}

	var invoicer engine.Invoicer
	if cfg.PaymentProviderURL != "" {
		invoicer = payment.NewWebhook(cfg.PaymentProviderURL)
		slog.Info("payment provider configured", "url", cfg.PaymentProviderURL)
	}

	var notifier engine.Notifier = notify.Noop{}
	if cfg.KafkaBroker != "" {
		kafkaNotifier := notify.NewKafka(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		slog.Info("order notifications enabled", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	hub := gateway.NewHub()

	eng := engine.New(engine.Config{
		DB:       database,
		Sessions: sessions,
		Sender:   hub,
		Invoicer: invoicer,
		Notifier: notifier,
		AdminIDs: cfg.AdminIDs,
	})

	dispatcher := engine.NewDispatcher(func(ctx context.Context, ev engine.Event) {
		if err := eng.Handle(ctx, ev); err != nil {
			slog.Error("handling event", "type", ev.Type, "user", ev.UserID, "error", err)
		}
	})

	gw := gateway.New(database, dispatcher, hub, jwtSecret, secretHash)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Let queued conversation events finish before closing anything.
	dispatcher.Wait()
	hub.Close()

	slog.Info("server stopped, closing database")
}

// seedCatalog inserts a handful of demo bouquets. Re-seeding is harmless.
func seedCatalog(ctx context.Context, database *sql.DB) error {
	demo := []struct {
		size   string
		number int
		title  string
		price  int64
	}{
		{model.SizeSmall, 1, "Three tulips", 12},
		{model.SizeSmall, 2, "Daisy posy", 15},
		{model.SizeMedium, 1, "Mixed seasonal", 28},
		{model.SizeMedium, 2, "Dozen roses", 35},
		{model.SizeBig, 1, "Peony armful", 55},
	}
	for _, d := range demo {
		_, err := store.InsertBouquet(ctx, database, d.size, d.number, d.title, d.price, "")
		if err != nil && !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("seeding %s no.%d: %w", d.size, d.number, err)
		}
	}
	return nil
}

// generateConnectorSecret creates a random shared secret and its bcrypt hash.
func generateConnectorSecret() (secret, hash string, err error) {
	secret, err = randomHex(24)
	if err != nil {
		return "", "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return secret, string(h), nil
}

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
