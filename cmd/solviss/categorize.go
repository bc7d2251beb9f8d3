package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/classification"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/cli"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
)

type suggestion struct {
	result classification.Result
	txn    model.Transaction
}

func categorizeCmd() *cobra.Command {
	var (
		apply         bool
		minConfidence float64
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Suggest categories for uncategorized transactions",
		Long: `Run the classification engine over every uncategorized transaction.
With --apply, suggestions at or above --min-confidence are saved and remembered for future runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if minConfidence < 0 || minConfidence > 1 {
				return common.NewUserError("--min-confidence deve estar entre 0 e 1",
					fmt.Errorf("%w: min confidence %v", common.ErrInvalidConfig, minConfidence))
			}

			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context(), apply)
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, categories, err := loadEngine(ctx, store)
			if err != nil {
				return err
			}

			uncategorized := false
			txns, err := store.GetTransactions(ctx, service.TransactionFilter{Categorized: &uncategorized, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("Nenhuma transação sem categoria"))
				return nil
			}

			bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(txns), "Categorizando transações...")
			var suggestions []suggestion
			applied := 0

			for _, txn := range txns {
				if ctx.Err() != nil {
					break
				}

				result := engine.CategorizeTransaction(txn)
				cli.Advance(bar)
				if result.CategoryID == "" || result.Confidence < minConfidence {
					continue
				}
				suggestions = append(suggestions, suggestion{txn: txn, result: result})

				if !apply {
					continue
				}
				if err := store.UpdateTransactionCategory(ctx, txn.ID, result.CategoryID); err != nil {
					return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
				}
				engine.Learn(txn.Description, result.CategoryID)
				applied++
			}

			if interrupts.WasInterrupted() {
				return nil
			}

			if err := printSuggestions(cmd, suggestions, categoryNames(categories)); err != nil {
				return err
			}

			summary := fmt.Sprintf("%d de %d transações com sugestão (confiança mínima %.0f%%)",
				len(suggestions), len(txns), minConfidence*100)
			if apply {
				summary += fmt.Sprintf("\n%d categorias aplicadas", applied)
			} else if len(suggestions) > 0 {
				summary += "\nUse --apply para salvar as sugestões"
			}
			fmt.Fprintln(out, cli.RenderBox("Categorização", summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "save suggestions at or above --min-confidence")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", classification.LearningThreshold, "minimum confidence to report or apply")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum transactions to process (0 = all)")
	return cmd
}

func printSuggestions(cmd *cobra.Command, suggestions []suggestion, names map[string]string) error {
	if len(suggestions) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Data"),
		cli.TableHeaderStyle.Render("Descrição"),
		cli.TableHeaderStyle.Render("Valor"),
		cli.TableHeaderStyle.Render("Categoria"),
		cli.TableHeaderStyle.Render("Conf."))
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.txn.Date.Format("02/01/2006"),
			truncate(s.txn.Description, 40),
			cli.FormatAmount(s.txn.Amount),
			names[s.result.CategoryID],
			cli.FormatConfidence(s.result.Confidence))
	}
	return w.Flush()
}
