// cmd/web/main.go
//
// FormPlant – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → FORMPLANT_* env
//     overrides) and validate it.
//
//  2. Start the daily rotating logger (tees to console when running in a
//     TTY) and install it as the zap global.
//
//  3. Resolve `vault:<path#key>` secret references when any are present.
//
//  4. Open the MySQL pool, seed form definitions from the seed directory,
//     and open the optional GeoLite2 database.
//
//  5. Assemble the submission pipeline and mount the router behind the
//     request-enrichment and security-header middleware.
//
//  6. Serve until SIGINT/SIGTERM, then drain with a 10 s shutdown grace.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/formplant/internal/captcha"
	"github.com/yanizio/formplant/internal/config"
	"github.com/yanizio/formplant/internal/database"
	"github.com/yanizio/formplant/internal/form"
	"github.com/yanizio/formplant/internal/logger"
	"github.com/yanizio/formplant/internal/mail"
	"github.com/yanizio/formplant/internal/middleware"
	"github.com/yanizio/formplant/internal/requestinfo"
	"github.com/yanizio/formplant/internal/server"
	"github.com/yanizio/formplant/internal/spam"
	"github.com/yanizio/formplant/internal/store"
	"github.com/yanizio/formplant/internal/submit"
	"github.com/yanizio/formplant/internal/upload"
	"github.com/yanizio/formplant/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// mailTransport picks SMTP when a relay host is configured, the logging
// transport otherwise.
func mailTransport(cfg *config.Config) mail.Transport {
	if cfg.Mail.Host == "" {
		return mail.LogTransport{}
	}
	return &mail.SMTP{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	}
}

// needsVault reports whether any configured secret is a vault reference.
func needsVault(cfg *config.Config) bool {
	for _, v := range []string{cfg.Mail.Password, cfg.Captcha.Secret, cfg.Database.DSN} {
		if strings.HasPrefix(v, "vault:") {
			return true
		}
	}
	return false
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Secret resolution (optional) ────────────────────────────────
	//
	if needsVault(cfg) {
		cli, err := vault.New()
		if err != nil {
			logOut.Fatalf("vault client: %v", err)
		}
		if err := config.ResolveSecrets(ctx, cli, cfg); err != nil {
			logOut.Fatalf("resolve secrets: %v", err)
		}
	}

	//
	// ── 3.  Database ────────────────────────────────────────────────────
	//
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		logOut.Fatalf("connect database: %v", err)
	}
	defer db.Close()
	logOut.Infow("database online")

	st := store.NewMySQL(db)

	// Form definitions are read on every render and submit; cache the hot
	// ones with a short TTL so edits propagate quickly.
	forms := store.NewCachedForms(st, 256, time.Minute)

	// Seed form definitions before the listener opens, so a fresh install
	// serves its bundled forms from the first request.
	if cfg.Forms.SeedDir != "" {
		if err := form.SeedDir(ctx, cfg.Forms.SeedDir, st); err != nil {
			logOut.Fatalf("seed forms: %v", err)
		}
	}

	//
	// ── 4.  Request enrichment (optional GeoIP) ─────────────────────────
	//
	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			logOut.Warnw("geoip unavailable", "path", cfg.Geo.DBPath, "error", err)
		}
	}

	//
	// ── 5.  Pipeline and router ─────────────────────────────────────────
	//
	var verifier captcha.Verifier
	if cfg.Captcha.Secret != "" {
		verifier = captcha.NewHTTPVerifier(cfg.Captcha.Secret)
	}

	srv := &server.Server{
		Pipeline: &submit.Pipeline{
			Forms:       forms,
			Submissions: st,
			Validator:   form.NewValidator(),
			Guard:       spam.NewGuard(),
			Captcha:     verifier,
			Mailer:      mailTransport(cfg),
			Site:        mail.SiteInfo{Name: cfg.Site.Name, URL: cfg.Site.URL},
			UploadRoot:  cfg.Uploads.Dir,
		},
		Forms:       forms,
		Submissions: st,
		Uploads:     &upload.Storage{Root: cfg.Uploads.Dir, BaseURL: cfg.Uploads.BaseURL},
	}

	var handler http.Handler = srv.Router()
	handler = requestinfo.Enrich(handler)
	handler = middleware.Security(handler)
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(handler)
	}

	httpSrv := server.New(cfg.HTTP.ListenAddr, handler)

	//
	// ── 6.  Serve until signalled ───────────────────────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logOut.Fatalf("http server: %v", err)
	}
	zap.S().Infow("shutdown complete")
}
