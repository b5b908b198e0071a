package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/reportledger/internal/ledger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ── migrate ──────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the backing schema for the configured store",
	Long: `migrate prepares the configured backend. For postgres it creates the
report_ledger table; file, memory and badger stores need no preparation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// openStore runs EnsureSchema for postgres.
		_, closeStore, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer closeStore()
		fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", viper.GetString("ledger.backend"))
		return nil
	},
}

// ── import / export ──────────────────────────────────────────────────────────

var importForce bool

var importCmd = &cobra.Command{
	Use:   "import <ledger.json>",
	Short: "Copy a JSON ledger file into the configured store",
	Long: `import loads a ledger file in the on-disk JSON layout, verifies it, and
writes it to the configured backend. Hashes are copied verbatim.

It refuses a tampered file or a target that already holds a chain unless
--force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <ledger.json>",
	Short: "Write the configured store out as a JSON ledger file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "import even if the file fails verification or the target is not empty")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	blocks, err := ledger.NewFileStore(args[0], logger).Load(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if len(blocks) == 0 {
		return fmt.Errorf("read %s: %w", args[0], ledger.ErrEmptyChain)
	}
	res := ledger.VerifyChain(blocks, viper.GetBool("ledger.strict_genesis"))
	if !res.Valid && !importForce {
		return fmt.Errorf("%s fails verification at block %d (%s); use --force to import anyway",
			args[0], res.Index, res.Reason)
	}

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	existing, err := store.Load(ctx)
	switch {
	case errors.Is(err, ledger.ErrNoLedger):
	case err != nil:
		return fmt.Errorf("inspect target store: %w", err)
	case !importForce:
		return fmt.Errorf("target store already holds %d blocks; use --force to replace them", len(existing))
	}

	if err := store.Save(ctx, blocks); err != nil {
		return err
	}
	logger.Info("ledger imported",
		zap.String("source", args[0]),
		zap.Int("blocks", len(blocks)),
		zap.Bool("valid", res.Valid),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d blocks.\n", len(blocks))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	blocks, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := ledger.NewFileStore(args[0], logger).Save(ctx, blocks); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d blocks to %s.\n", len(blocks), args[0])
	return nil
}
