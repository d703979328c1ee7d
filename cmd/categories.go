package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/jokes"
)

var flagJSON bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the built-in joke categories and languages",
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(categoriesCmd)
}

type catalogEntry struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func runCategories(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if flagJSON {
		cats := make([]catalogEntry, 0, len(jokes.Categories()))
		for _, c := range jokes.Categories() {
			cats = append(cats, catalogEntry{Name: c, Label: jokes.Label(c)})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Categories []catalogEntry `json:"categories"`
			Languages  []string       `json:"languages"`
		}{cats, jokes.Languages()})
	}

	fmt.Fprintln(out, "Categories:")
	for _, c := range jokes.Categories() {
		fmt.Fprintf(out, "  %-22s %s\n", c, jokes.Label(c))
	}
	fmt.Fprintln(out, "\nLanguages:")
	for _, l := range jokes.Languages() {
		fmt.Fprintf(out, "  %s\n", l)
	}
	return nil
}
