package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/controller/server"
	"github.com/aiarchives/aiarchives/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg            config
		addr           string
		maxUploadBytes int64
		migrate        bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("AIARCHIVES_ADDR"),
			Destination: &addr,
		},
		&cli.IntFlag{
			Name:        "max-upload-bytes",
			Usage:       "Maximum size of an ingestion request body",
			Value:       server.DefaultMaxUploadBytes,
			Sources:     cli.EnvVars("AIARCHIVES_MAX_UPLOAD_BYTES"),
			Destination: &maxUploadBytes,
		},
		&cli.BoolFlag{
			Name:        "migrate",
			Usage:       "Apply the schema before serving",
			Sources:     cli.EnvVars("AIARCHIVES_MIGRATE"),
			Destination: &migrate,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the archive HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}
			if cfg.baseURL == "" {
				return errMissing("base-url", "BASE_URL")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if migrate {
				if err := repo.Migrate(ctx); err != nil {
					return goerr.Wrap(err, "failed to migrate metadata store")
				}
			}

			uc, store, err := cfg.newUseCase(ctx, repo)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := []server.Option{server.WithMaxUploadBytes(maxUploadBytes)}
			if self, ok := store.(adapter.SelfServedStore); ok {
				opts = append(opts, server.WithBlobStore(self))
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(uc, opts...).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       60 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			return runServer(ctx, srv)
		},
	}
}

// runServer serves until SIGINT/SIGTERM or ctx is done, then drains
// in-flight requests
func runServer(ctx context.Context, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Default().Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "server stopped", goerr.V("addr", srv.Addr))
		}
		return nil
	case <-ctx.Done():
	}

	logging.Default().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown server")
	}
	return nil
}
