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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapix "github.com/tanpawarit/tenant-assistant/assistant/httpapi"
	orchestratorx "github.com/tanpawarit/tenant-assistant/assistant/orchestrator"
	configx "github.com/tanpawarit/tenant-assistant/pkg/config"
	logx "github.com/tanpawarit/tenant-assistant/pkg/logger"
)

var (
	envFile string

	askTenant  string
	askUser    string
	askMessage string
)

var rootCmd = &cobra.Command{
	Use:           "tenant-assistant",
	Short:         "Tenant-scoped business assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := configx.MustNew[logx.Config]("LOG", envOptions()...)
		logx.Init(*logCfg)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Submit a single turn and print the reply",
	RunE:  runAsk,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables the assistant reads and writes",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env when present)")

	askCmd.Flags().StringVar(&askTenant, "tenant", "", "tenant id")
	askCmd.Flags().StringVar(&askUser, "user", "", "user id")
	askCmd.Flags().StringVarP(&askMessage, "message", "m", "", "message to send")
	_ = askCmd.MarkFlagRequired("tenant")
	_ = askCmd.MarkFlagRequired("user")
	_ = askCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(serveCmd, askCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func envOptions() []configx.Option {
	if envFile == "" {
		return nil
	}
	return []configx.Option{configx.WithEnvFile(envFile)}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	app, err := newApp(ctx, envOptions()...)
	if err != nil {
		return err
	}
	defer app.Close()

	httpCfg, err := configx.New[httpapix.Config]("HTTP", envOptions()...)
	if err != nil {
		return err
	}

	router := httpapix.NewRouter(log.Logger, *httpCfg, httpapix.NewHandler(app.Orchestrator))
	srv := httpapix.NewServer(*httpCfg, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpCfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := log.Logger.WithContext(cmd.Context())

	app, err := newApp(ctx, envOptions()...)
	if err != nil {
		return err
	}
	defer app.Close()

	reply, err := app.Orchestrator.SubmitTurn(ctx, askTenant, askUser, askMessage)
	if err != nil {
		var perr *orchestratorx.PersistenceError
		if !errors.As(err, &perr) {
			return err
		}
		// the reply is still valid; try the write once more
		if _, retryErr := app.Orchestrator.RetryPersist(ctx, perr); retryErr != nil {
			log.Warn().Err(retryErr).Msg("transcript not persisted")
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := log.Logger.WithContext(cmd.Context())

	db, err := openDatabase(ctx, envOptions()...)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("schema is up to date")
	return nil
}

