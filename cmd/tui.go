package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/config"
	"github.com/timvw/joke-bot/internal/session"
	"github.com/timvw/joke-bot/internal/tui"
)

var flagTheme string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal joke bot",
	Long: `Open the interactive terminal joke bot.

Pick a category with the arrow keys, switch language with left/right, tune
the writer and critic temperatures with w/W and c/C, and press enter to get
a joke. r resets the counter, esc cancels a running generation, q quits.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&flagTheme, "theme", "dark", "color theme: dark, light")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log lines on stderr would tear the alternate screen.
	quiet := func(cfg *config.Config) {
		if !cmd.Flags().Changed("log-level") && !flagVerbose {
			cfg.LogLevel = "error"
		}
	}
	a, err := setup(cmd, quiet)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.APIKey == "" {
		return fmt.Errorf("no API key found. Set --api-key, JOKE_BOT_API_KEY or the provider's key variable")
	}

	t := &tui.TUI{
		Generator:         a.gen,
		Sessions:          session.NewStore(0),
		APIKey:            a.cfg.APIKey,
		WriterTemperature: a.cfg.WriterTemperature,
		CriticTemperature: a.cfg.CriticTemperature,
		Theme:             tui.ThemeByName(flagTheme),
	}
	return t.Run(cmd.Context())
}
