package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import a JSON array of items",
	Long: `Import reads a JSON array of item records and imports them the same way
POST /api/items/bulk does. Categories are matched by name regardless of
case and created when missing; remote images are downloaded.

Pass "-" to read the array from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		var data []byte
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}

		raws, err := importer.ParsePayload(data)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.importer.Import(cmd.Context(), raws)
		if err != nil {
			logger.Error("import failed", zap.Error(err))
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("%d of %d records failed", len(res.Errors), len(raws))
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and the admin account",
	Long: `Init creates the database schema and, when no account exists yet, the
admin account with a random password that is printed once. Serving does
the same on startup, so running init first is optional.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return a.Close()
	},
}

var resetInterestCmd = &cobra.Command{
	Use:   "reset-interest",
	Short: "Remove every booking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.catalog.ResetInterest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d bookings.\n", n)
		return nil
	},
}
