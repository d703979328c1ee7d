package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/jokes"
)

var (
	flagCategory   string
	flagLanguage   string
	flagWriterTemp float64
	flagCriticTemp float64
)

var jokeCmd = &cobra.Command{
	Use:   "joke",
	Short: "Generate one critic-approved joke",
	Long: `Generate one joke. The writer drafts, the critic judges, and rejected
drafts are rewritten until the critic approves or the critique limit is hit.

Output is JSON on stdout. The "outcome" field tells approved jokes apart
from the last draft of an exhausted loop.`,
	RunE: runJoke,
}

func init() {
	addRequestFlags(jokeCmd)
	rootCmd.AddCommand(jokeCmd)
}

// addRequestFlags registers the per-request flags shared by joke and batch.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagCategory, "category", jokes.DefaultCategory, "joke category (see: joke-bot categories)")
	cmd.Flags().StringVar(&flagLanguage, "language", jokes.DefaultLanguage, "language the joke is written in")
	cmd.Flags().Float64Var(&flagWriterTemp, "writer-temp", 0, "writer temperature in [0, 1] (default: from config, 0.8)")
	cmd.Flags().Float64Var(&flagCriticTemp, "critic-temp", 0, "critic temperature in [0, 1] (default: from config, 0.3)")
}

// applyRequestFlags overrides req with the temperature flags that were set.
func applyRequestFlags(cmd *cobra.Command, req jokes.Request) jokes.Request {
	if cmd.Flags().Changed("writer-temp") {
		req.WriterTemperature = flagWriterTemp
	}
	if cmd.Flags().Changed("critic-temp") {
		req.CriticTemperature = flagCriticTemp
	}
	return req
}

func runJoke(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	req := applyRequestFlags(cmd, a.request(flagCategory, flagLanguage))
	res, err := a.gen.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
