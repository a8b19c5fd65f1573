package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/httpapi"
	"github.com/ahmedtarek-mel/prime-brief/internal/otel"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		dev        bool
		apiKey     string
		dbDriver   string
		dbURL      string
		envFile    string
		enableOtel bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and HTTP API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			home := config.MustHomeFrom(cmd.Context())
			settings := config.Load()
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.SlogLevel()})))

			if apiKey == "" {
				apiKey = os.Getenv("PRIMEBRIEF_API_KEY")
			}

			opts := httpapi.ServerOptions{
				Home:        home,
				Addr:        fmt.Sprintf(":%d", port),
				Dev:         dev,
				APIKey:      apiKey,
				DBDriver:    dbDriver,
				DBURL:       dbURL,
				Settings:    settings,
				UseOtelHTTP: enableOtel,
			}
			if enableOtel {
				handler, err := otel.InitMeterProvider(cmd.Context(), "primebrief")
				if err != nil {
					slog.Warn("otel init failed, falling back to plain metrics", "err", err)
				} else {
					opts.MetricsHandler = handler
					if err := otel.InitMetrics(cmd.Context()); err != nil {
						slog.Warn("otel instruments init failed", "err", err)
					}
				}
			}

			app, err := httpapi.NewApp(opts)
			if err != nil {
				return err
			}

			if missing := settings.MissingKeys(); len(missing) > 0 {
				slog.Warn("configuration incomplete; runs will fail until these are set", "missing", missing)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Prime Brief listening on http://localhost:%d\n", port)

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Server.ListenAndServe()
			}()
			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return app.Server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 8787, "Port for the web UI and API")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode (permissive CORS)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Require this API key (or set PRIMEBRIEF_API_KEY)")
	cmd.Flags().StringVar(&dbDriver, "db-driver", "sqlite", "Store driver: sqlite or postgres")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "DB connection string (for postgres; or set DATABASE_URL)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load env vars from this file before starting")
	cmd.Flags().BoolVar(&enableOtel, "otel", true, "Enable OpenTelemetry metrics (Prometheus exporter)")

	return cmd
}
