package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tradepilot/config"
	"tradepilot/internal/engine"
	"tradepilot/internal/gateway"
	"tradepilot/internal/journal"
	"tradepilot/internal/logger"
	"tradepilot/internal/marketdata"
	"tradepilot/internal/model"
	"tradepilot/internal/notification"
	"tradepilot/internal/obs"
	"tradepilot/internal/recordstore"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Local development convenience; in deployment the env is already set.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tradepilot",
		Short: "Paper-trading decision engine",
		Long: `tradepilot runs scheduled decision cycles against an external trade
record store: it snapshots the market, walks active trades through the exit
ladder, evaluates entries, and promotes watchlist candidates.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newReviewCmd())
	return root
}

// buildEngine wires the collaborators from env config. withMetrics controls
// prometheus registration, which must happen at most once per process.
func buildEngine(withMetrics bool) (*engine.Engine, *config.Config, *obs.Metrics, func()) {
	cfg := config.Load()
	logger.Init("tradepilot", slog.LevelInfo)

	profiles, err := model.Profiles(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("[engine] profiles: %v", err)
	}

	store := recordstore.NewClient(recordstore.Config{
		BaseURL:    cfg.StoreBaseURL,
		APIKey:     cfg.StoreAPIKey,
		ClientCode: cfg.StoreClientCode,
		TOTPSecret: cfg.StoreTOTPSecret,
	})
	market := marketdata.NewClient(cfg.MarketDataURL)

	opts := engine.Options{}
	cleanup := func() {}

	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		// Cache entries outlive two bar intervals, then they are worse
		// than no data.
		opts.Cache = marketdata.NewCache(rdb, 8*time.Hour)
		cleanup = func() { rdb.Close() }
	}

	if cfg.SQLitePath != "" {
		jnl, err := journal.New(cfg.SQLitePath)
		if err != nil {
			log.Printf("[engine] decision journal disabled: %v", err)
		} else {
			opts.Journal = jnl
			prev := cleanup
			cleanup = func() { jnl.Close(); prev() }
		}
	}

	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChat != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChat))
	}
	opts.Notifier = notifiers

	var metrics *obs.Metrics
	if withMetrics {
		metrics = obs.NewMetrics()
		opts.Metrics = metrics
	}

	e := engine.New(cfg, store, market, profiles, opts)
	return e, cfg, metrics, cleanup
}

func newRunCmd() *cobra.Command {
	var (
		loop     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a decision cycle (or loop on an interval with --loop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, _, cleanup := buildEngine(true)
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !loop {
				return e.RunCycle(ctx)
			}

			health := obs.NewHealthStatus()
			srv := obs.NewServer(cfg.MetricsAddr, health)
			srv.Start()
			defer func() {
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				srv.Stop(shutCtx)
				cancel()
			}()

			log.Printf("[engine] loop mode, interval %s", interval)
			runLoop(ctx, e, health, interval)
			return nil
		},
	}
	cmd.Flags().BoolVar(&loop, "loop", false, "keep running cycles on an interval")
	cmd.Flags().DurationVar(&interval, "interval", 4*time.Hour, "cycle interval in loop mode")
	return cmd
}

// runLoop fires a cycle immediately, then on every tick. A tick that arrives
// while a cycle is still running is skipped, never queued.
func runLoop(ctx context.Context, e *engine.Engine, health *obs.HealthStatus, interval time.Duration) {
	sem := make(chan struct{}, 1)
	cycle := func() {
		select {
		case sem <- struct{}{}:
		default:
			log.Printf("[engine] previous cycle still running, skipping tick")
			return
		}
		go func() {
			defer func() { <-sem }()
			err := e.RunCycle(ctx)
			if err != nil {
				log.Printf("[engine] cycle error: %v", err)
			}
			health.SetCycleResult(err == nil, e.BreakerOpen(), 0)
		}()
	}

	cycle()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[engine] shutting down")
			return
		case <-ticker.C:
			cycle()
		}
	}
}

func newReviewCmd() *cobra.Command {
	var serveAddr string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Print a read-only market review (or serve it over WebSocket with --serve)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, _, cleanup := buildEngine(false)
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := e.Review(ctx)
			if err != nil {
				return err
			}

			if serveAddr == "" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			hub := gateway.NewHub()
			hub.Broadcast(report)

			mux := http.NewServeMux()
			mux.HandleFunc("/ws", hub.ServeWS)
			srv := &http.Server{Addr: serveAddr, Handler: mux}
			go func() {
				<-ctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				srv.Shutdown(shutCtx)
				cancel()
			}()

			// Refresh the broadcast every 15 minutes while serving.
			go func() {
				ticker := time.NewTicker(15 * time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if report, err := e.Review(ctx); err == nil {
							hub.Broadcast(report)
						} else {
							log.Printf("[review] refresh failed: %v", err)
						}
					}
				}
			}()

			log.Printf("[review] serving reports on ws://%s/ws", serveAddr)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serveAddr, "serve", "", "serve the report over WebSocket at this address")
	return cmd
}
