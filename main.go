package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"checkin/config"
	"checkin/middlewares"
	"checkin/photos"
	"checkin/routes"
	"checkin/utils"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "checkin:", err)
		os.Exit(1)
	}
}

type appState struct {
	cfg config.Config
	log zerolog.Logger
}

func newApp() *cli.App {
	st := &appState{}
	return &cli.App{
		Name:  "checkin",
		Usage: "Manage events, attendees and check-ins.",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.log = utils.NewLogger(cfg.LogLevel, cfg.LogPretty)
			return nil
		},
		Commands: []*cli.Command{
			st.serveCommand(),
			st.signupCommand(),
			st.loginCommand(),
			st.logoutCommand(),
			st.whoamiCommand(),
			st.passwdCommand(),
			st.eventsCommand(),
			st.peopleCommand(),
			st.attendCommand(),
			st.rosterCommand(),
		},
	}
}

// withBackend opens the configured stores around a command action.
func (st *appState) withBackend(fn func(*cli.Context, *backend) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		b, err := openBackend(c.Context, st.cfg, st.log)
		if err != nil {
			return err
		}
		defer func() {
			if err := b.Close(); err != nil {
				st.log.Warn().Err(err).Msg("closing backend")
			}
		}()
		return fn(c, b)
	}
}

func (st *appState) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: st.withBackend(func(c *cli.Context, b *backend) error {
			cfg := b.cfg
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set to serve")
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openPhotos(ctx, cfg)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			if st.log.GetLevel() > zerolog.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			server := gin.New()
			server.Use(gin.Recovery())
			routes.RegisterRoutes(ctx, server, routes.Deps{
				Repo:     b.repo,
				Accounts: b.accounts,
				Signer:   utils.NewTokenSigner(cfg.JWTSecret, cfg.JWTTTL),
				Photos:   store,
				Redis:    b.cacheRedis(ctx),
				Metrics:  middlewares.NewMetrics(reg),
				Gatherer: reg,
				Log:      st.log.With().Str("component", "http").Logger(),
				Limits: routes.Limits{
					Global:     middlewares.LimiterConfig{RPS: cfg.GlobalRPS, Burst: cfg.GlobalBurst, IdleTTL: 3 * time.Minute},
					Auth:       middlewares.LimiterConfig{RPS: cfg.AuthRPS, Burst: cfg.AuthBurst, IdleTTL: 10 * time.Minute},
					User:       middlewares.LimiterConfig{RPS: cfg.UserRPS, Burst: cfg.UserBurst, IdleTTL: 10 * time.Minute},
					DailyQuota: cfg.DailyQuota,
				},
				CacheTTL: cfg.CacheTTL,
			})

			srv := &http.Server{Addr: cfg.Addr, Handler: server, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			st.log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Msg("listening")

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			st.log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
}

func openPhotos(ctx context.Context, cfg config.Config) (photos.Store, error) {
	if cfg.PhotoDriver == config.PhotosS3 {
		return photos.NewS3(ctx, photos.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
		})
	}
	return photos.NewFS(cfg.PhotoDir)
}
