package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/gateway"
)

var validateCmd = &cobra.Command{
	Use:   "validate-key",
	Short: "Check the configured API key against the provider",
	Long: `Check the API key by listing the provider's models. Exits non-zero when
the provider rejects the key or cannot be reached.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.APIKey == "" {
		return fmt.Errorf("no API key found. Set --api-key, JOKE_BOT_API_KEY or the provider's key variable")
	}

	ctx := cmd.Context()
	if a.cfg.RequestTimeoutDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeoutDuration)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	switch err := a.keyValidator()(ctx, a.cfg.APIKey); {
	case err == nil:
		fmt.Fprintf(out, "API key is valid for %s\n", a.cfg.Provider)
		return nil
	case errors.Is(err, gateway.ErrAuthentication):
		fmt.Fprintf(out, "Invalid API key for %s\n", a.cfg.Provider)
		return err
	default:
		return fmt.Errorf("validating key: %w", err)
	}
}
