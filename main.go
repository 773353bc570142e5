// Command padlink starts the PadLink relay server.
//
// The server turns phones into gamepads: game pages and controller
// pages open websocket connections to it, register into a shared
// session, and the server relays controller input to the game clients
// of that session. Flags control host/port, the static directory,
// sweep policy, debug logging, and optional ngrok tunneling so phones
// outside the LAN can reach the server during development.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/padlink/padlink/api"
	"github.com/padlink/padlink/metrics"
	"github.com/padlink/padlink/relay/session"
	"github.com/padlink/padlink/transport/websocket"
)

const (
	Version = "1.2.0"
	AppName = "PadLink Relay Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	cmd := &cli.Command{
		Name:    "padlink",
		Usage:   "session-scoped websocket relay between controller and game clients",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "0.0.0.0",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("PADLINK_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   3000,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PADLINK_PORT"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Value:   "static",
				Usage:   "directory containing the game and controller pages",
				Sources: cli.EnvVars("PADLINK_STATIC_DIR"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Value:   5 * time.Minute,
				Usage:   "how often the expiry sweeper runs",
				Sources: cli.EnvVars("PADLINK_SWEEP_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   time.Hour,
				Usage:   "age after which an empty session is swept",
				Sources: cli.EnvVars("PADLINK_SESSION_TTL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// run wires the registry, transport, and HTTP server, then serves
// until a shutdown signal arrives.
func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	metrics.Register(prometheus.DefaultRegisterer)

	registry := session.NewRegistry(logger)
	wsHandler := websocket.NewHandler(registry, logger)
	apiServer := api.NewServer(registry, wsHandler, cmd.String("static-dir"), logger)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     apiServer,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("http server listening",
			zap.String("addr", addr),
			zap.String("version", Version))
		logger.Info("endpoints",
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
			zap.String("controller", fmt.Sprintf("http://%s/controller", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionSweepRoutine(serveCtx, registry,
			cmd.Duration("sweep-interval"), cmd.Duration("session-ttl"), logger)
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(serveCtx, apiServer,
				cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), logger)
		}()
	}

	sig := <-stop
	logger.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// sessionSweepRoutine periodically removes sessions that are empty and
// older than ttl.
func sessionSweepRoutine(ctx context.Context, registry *session.Registry, interval, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.SweepExpired(time.Now(), ttl); removed > 0 {
				logger.Info("swept idle sessions",
					zap.Int("removed", removed),
					zap.Int("remaining", registry.Count()))
			}
		}
	}
}

// runNgrokTunnel serves the handler through a public ngrok endpoint so
// phones off the LAN can reach the relay.
func runNgrokTunnel(ctx context.Context, handler http.Handler, authToken, domain string, logger *zap.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Warn("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	logger.Info("ngrok tunnel established",
		zap.String("url", tun.URL()),
		zap.String("controller", tun.URL()+"/controller"))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}
