package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quizloop-service/internal/app"
	transport "quizloop-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	d, err := openDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.Close()
	cfg, log := d.cfg, d.log

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + finalPort
	}

	generator, err := d.generator(ctx)
	if err != nil {
		return err
	}

	projects := d.projects()
	visits := d.visits()
	ledger := app.NewLedger(d.store, d.store)
	flow := app.NewFlowController(app.NewResolver(projects, log), d.store, ledger, visits, log)
	authoring := app.NewAuthoringService(projects, generator, baseURL, log).
		WithQuestionCount(cfg.Generator.QuestionCount)

	handler := transport.NewRouter(transport.RouterConfig{
		WS:          transport.NewWSHandler(flow, log),
		Visits:      transport.NewVisitHandler(flow, log),
		Admin:       transport.NewAdminHandler(authoring, app.NewRosterService(d.store, log), app.NewReportService(projects, d.store, ledger), log),
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// generation requests wait on the model
		WriteTimeout: 90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("base_url", baseURL).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sweeper, ok := visits.(app.VisitSweeper); ok {
		g.Go(func() error {
			sweepVisits(gctx, sweeper, visitSweepInterval, log)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sweepVisits drops abandoned visits until ctx is done.
func sweepVisits(ctx context.Context, sweeper app.VisitSweeper, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweeper.Sweep(ctx); n > 0 {
				log.Debug().Int("removed", n).Msg("idle visits swept")
			}
		}
	}
}
