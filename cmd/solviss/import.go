package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/cli"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from bank statements",
	}
	cmd.AddCommand(importOFXCmd())
	return cmd
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx <files...>",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX files exported from your bank.
Lines already imported are skipped.

Examples:
  solviss import ofx ~/Downloads/extrato-jan.ofx
  solviss import ofx ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	return cmd
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	parser := ofx.NewParser()
	seen := make(map[string]bool)
	var transactions []model.Transaction

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			common.LogError(err, "Failed to open file", common.Fields{"file": path})
			continue
		}

		parsed, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
			continue
		}

		added := 0
		for _, txn := range parsed {
			if seen[txn.Hash] {
				continue
			}
			seen[txn.Hash] = true
			transactions = append(transactions, txn)
			added++
		}
		common.LogInfo("Processed file", common.Fields{
			"file":               filepath.Base(path),
			"transactions_found": len(parsed),
			"added":              added,
		})
	}

	out := cmd.OutOrStdout()
	if len(transactions) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("Nenhuma transação encontrada"))
		return nil
	}

	if dryRun {
		for _, txn := range transactions {
			fmt.Fprintf(out, "%s  %-40s  %s\n",
				txn.Date.Format("02/01/2006"), truncate(txn.Description, 40), cli.FormatAmount(txn.Amount))
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d transações seriam importadas (dry run)", len(transactions))))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := store.SaveTransactions(ctx, transactions)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d transações importadas, %d já existiam", saved, len(transactions)-saved)))
	return nil
}
