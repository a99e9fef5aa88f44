// cmd/web/main.go
//
// Forja – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Optional Vault client, installed as the config secret resolver.
//
//  2. Layered config load (.env → conf/global.yaml → FORJA_ env).
//
//  3. Daily rotating logger (tees to console when running in a TTY).
//
//  4. Control-plane DB with ping retry; log active-site count.
//
//  5. Collaborators: generator client, quota tracker, update engine,
//     wizard manager (plus its stale-session purge loop), visit
//     recorder.
//
//  6. chi router (API + /metrics + visit beacon) behind a server with
//     graceful drain.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/webforja/forja/internal/config"
	"github.com/webforja/forja/internal/database"
	"github.com/webforja/forja/internal/generator"
	"github.com/webforja/forja/internal/logger"
	"github.com/webforja/forja/internal/pipeline"
	"github.com/webforja/forja/internal/quota"
	"github.com/webforja/forja/internal/server"
	"github.com/webforja/forja/internal/stats"
	"github.com/webforja/forja/internal/vault"
	"github.com/webforja/forja/internal/web"
	"github.com/webforja/forja/internal/wizard"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	//
	// ── 1.  Secrets + config ────────────────────────────────────────────
	//
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New()
		if err != nil {
			log.Fatalf("vault client: %v", err)
		}
		config.SetSecretResolver(func(ref string) (string, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return vc.Resolve(ctx, ref)
		})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Logging.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync()

	//
	// ── 2.  Control-plane DB ────────────────────────────────────────────
	//
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.Open(ctx, cfg.Database.DSN)
	cancel()
	if err != nil {
		logOut.Fatalw("connect control-plane DB", "error", err)
	}
	defer db.Close()

	// Early sanity check: the schema is reachable.
	var active int
	_ = db.Get(&active, `
	    SELECT COUNT(*) FROM site WHERE deleted_at IS NULL`)
	logOut.Infow("control-plane DB online", "active_sites", active)

	//
	// ── 3.  Collaborators ───────────────────────────────────────────────
	//
	gen := generator.NewClient(cfg.Generator, logOut)
	tracker := quota.NewTracker(db, cfg.Quota.DailyLimits, logOut)
	engine := pipeline.NewEngine(db, gen, tracker, logOut)

	sessions := wizard.NewManager(db, logOut)
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	sessions.StartPurgeLoop(purgeCtx, purgeInterval(cfg), retention(cfg))

	recorder, err := stats.NewRecorder(db, cfg.Stats.GeoIPPath, logOut)
	if err != nil {
		logOut.Fatalw("visit recorder", "error", err)
	}
	defer recorder.Close()

	//
	// ── 4.  HTTP ────────────────────────────────────────────────────────
	//
	api := web.NewServer(db, engine, sessions, tracker, recorder, cfg.Paths.Sites, logOut)
	srv := server.New(cfg.HTTP.ListenAddr, api.Router(), cfg.Generator.Timeout())

	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
	if err := server.Run(srv, logOut); err != nil {
		logOut.Fatalw("http server", "error", err)
	}
}

func retention(cfg *config.Config) time.Duration {
	if cfg.Wizard.RetentionDays > 0 {
		return time.Duration(cfg.Wizard.RetentionDays) * 24 * time.Hour
	}
	return wizard.DefaultRetention
}

func purgeInterval(cfg *config.Config) time.Duration {
	if cfg.Wizard.PurgeHours > 0 {
		return time.Duration(cfg.Wizard.PurgeHours) * time.Hour
	}
	return wizard.DefaultPurgeInterval
}
