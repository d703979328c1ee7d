package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/server"
	"github.com/timvw/joke-bot/internal/session"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web front end",
	Long: `Serve the browser front end and its JSON API.

Each visitor gets a session: enter an API key, start the bot, then pick a
category, a language and the two temperatures and ask for jokes. Sessions
expire after session_ttl of inactivity.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default: from config, :8501)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.ServerAddr
	if cmd.Flags().Changed("addr") {
		addr = flagAddr
	}

	srv, err := server.New(server.Config{
		Generator:         a.gen,
		Validate:          a.keyValidator(),
		Sessions:          session.NewStore(a.cfg.SessionTTLDuration),
		RequestTimeout:    a.cfg.RequestTimeoutDuration,
		WriterTemperature: a.cfg.WriterTemperature,
		CriticTemperature: a.cfg.CriticTemperature,
		Provider:          a.cfg.Provider,
		Logger:            a.logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
