package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/classification"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/cli"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
)

// ruleFlags holds the flags shared by "rules add" and "rules edit".
type ruleFlags struct {
	category   string
	minAmount  string
	maxAmount  string
	require    string
	exclude    string
	keywords   []string
	confidence float64
	minDay     int
	maxDay     int
	regex      bool
}

var conditionFlagNames = []string{"min-amount", "max-amount", "min-day", "max-day", "require", "exclude", "regex"}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "category name")
	cmd.Flags().StringSliceVar(&f.keywords, "keywords", nil, "comma separated keywords")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0.8, "base confidence (0.0-1.0)")
	cmd.Flags().StringVar(&f.minAmount, "min-amount", "", "only match absolute amounts >= this")
	cmd.Flags().StringVar(&f.maxAmount, "max-amount", "", "only match absolute amounts <= this")
	cmd.Flags().IntVar(&f.minDay, "min-day", 0, "only match from this day of the month")
	cmd.Flags().IntVar(&f.maxDay, "max-day", 0, "only match up to this day of the month")
	cmd.Flags().StringVar(&f.require, "require", "", "extra text the description must contain")
	cmd.Flags().StringVar(&f.exclude, "exclude", "", "text the description must not contain")
	cmd.Flags().BoolVar(&f.regex, "regex", false, "treat --require and --exclude as regular expressions")
}

// conditions translates the condition flags into rule conditions.
func (f *ruleFlags) conditions() (model.Conditions, error) {
	var conds model.Conditions

	minAmount, err := optionalDecimal(f.minAmount, "min-amount")
	if err != nil {
		return nil, err
	}
	maxAmount, err := optionalDecimal(f.maxAmount, "max-amount")
	if err != nil {
		return nil, err
	}

	switch {
	case minAmount != nil && maxAmount != nil:
		conds = append(conds, model.AmountCondition{Op: model.AmountRange, Min: minAmount, Max: maxAmount})
	case minAmount != nil:
		conds = append(conds, model.AmountCondition{Op: model.AmountGreaterEqual, Value: *minAmount})
	case maxAmount != nil:
		conds = append(conds, model.AmountCondition{Op: model.AmountLessEqual, Value: *maxAmount})
	}

	if f.minDay != 0 || f.maxDay != 0 {
		conds = append(conds, model.DayCondition{MinDay: f.minDay, MaxDay: f.maxDay})
	}
	if f.require != "" {
		conds = append(conds, model.TextCondition{Pattern: f.require, Regex: f.regex})
	}
	if f.exclude != "" {
		conds = append(conds, model.TextCondition{Pattern: f.exclude, Regex: f.regex, Exclude: true})
	}

	for i, c := range conds {
		if err := c.Validate(); err != nil {
			return nil, common.NewUserError(fmt.Sprintf("Condição inválida: %v", err),
				fmt.Errorf("%w: condition %d: %w", common.ErrInvalidRule, i, err))
		}
	}
	return conds, nil
}

func optionalDecimal(s, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Valor inválido para --%s: %q", name, s), err)
	}
	return &d, nil
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long: `List, add, edit, enable, disable, delete and test the keyword rules used to categorize transactions.
Built-in rules can be edited and disabled but not deleted.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(editRuleCmd())
	cmd.AddCommand(toggleRuleCmd("enable", true))
	cmd.AddCommand(toggleRuleCmd("disable", false))
	cmd.AddCommand(deleteRuleCmd())
	cmd.AddCommand(testRuleCmd())

	return cmd
}

// withEngine opens storage and loads the engine for a rules subcommand.
func withEngine(ctx context.Context, fn func(service.Storage, *classification.Engine, []model.Category) error) error {
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, categories, err := loadEngine(ctx, store)
	if err != nil {
		return err
	}
	return fn(store, engine, categories)
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(_ service.Storage, engine *classification.Engine, categories []model.Category) error {
				names := categoryNames(categories)
				out := cmd.OutOrStdout()

				rules := engine.Rules()
				if len(rules) == 0 {
					fmt.Fprintln(out, cli.InfoStyle.Render("Nenhuma regra. Crie categorias com 'solviss categories init'."))
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					cli.TableHeaderStyle.Render("ID"),
					cli.TableHeaderStyle.Render("Categoria"),
					cli.TableHeaderStyle.Render("Conf."),
					cli.TableHeaderStyle.Render("Status"),
					cli.TableHeaderStyle.Render("Palavras-chave"))
				for _, r := range rules {
					status := cli.SuccessStyle.Render("ativa")
					if !r.Active {
						status = cli.SubtleStyle.Render("inativa")
					}
					keywords := truncate(strings.Join(r.Keywords, ", "), 60)
					if n := len(r.Conditions); n > 0 {
						keywords += cli.SubtleStyle.Render(fmt.Sprintf(" (+%d condições)", n))
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						r.ID, names[r.CategoryID], cli.FormatConfidence(r.Confidence), status, keywords)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				stats := engine.Stats()
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("\n%d regras, %d ativas, %d descrições aprendidas",
					stats.TotalRules, stats.ActiveRules, stats.LearningEntries)))
				return nil
			})
		},
	}
}

func addRuleCmd() *cobra.Command {
	var flags ruleFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom rule",
		Example: `  solviss rules add --category Lazer --keywords "steam,playstation" --confidence 0.85
  solviss rules add --category Moradia --keywords aluguel --min-day 1 --max-day 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			conds, err := flags.conditions()
			if err != nil {
				return err
			}

			return withEngine(ctx, func(store service.Storage, engine *classification.Engine, _ []model.Category) error {
				category, err := findCategory(ctx, store, flags.category)
				if err != nil {
					return err
				}

				rule, err := engine.AddCustomRule(model.ClassificationRule{
					CategoryID: category.ID,
					Keywords:   flags.keywords,
					Conditions: conds,
					Confidence: flags.confidence,
					Active:     true,
				})
				if err != nil {
					return common.NewUserError("Regra inválida", err)
				}

				if err := store.SaveRule(ctx, rule); err != nil {
					return fmt.Errorf("failed to save rule: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Regra %s criada para %q", rule.ID, category.Name)))
				return nil
			})
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("keywords")
	return cmd
}

func editRuleCmd() *cobra.Command {
	var (
		flags           ruleFlags
		clearConditions bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a rule",
		Long:  `Change a rule's category, keywords, confidence or conditions. Only the flags given are changed; condition flags replace all conditions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			var update classification.RuleUpdate
			if cmd.Flags().Changed("keywords") {
				update.Keywords = flags.keywords
			}
			if cmd.Flags().Changed("confidence") {
				update.Confidence = &flags.confidence
			}
			if clearConditions || anyChanged(cmd, conditionFlagNames) {
				conds, err := flags.conditions()
				if err != nil {
					return err
				}
				update.Conditions = &conds
			}

			return withEngine(ctx, func(store service.Storage, engine *classification.Engine, _ []model.Category) error {
				if cmd.Flags().Changed("category") {
					category, err := findCategory(ctx, store, flags.category)
					if err != nil {
						return err
					}
					update.CategoryID = &category.ID
				}

				return applyRuleUpdate(ctx, cmd, store, engine, id, update, "atualizada")
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&clearConditions, "clear-conditions", false, "remove all conditions")
	return cmd
}

func anyChanged(cmd *cobra.Command, names []string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func toggleRuleCmd(use string, active bool) *cobra.Command {
	verb := "desativada"
	if active {
		verb = "ativada"
	}

	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withEngine(ctx, func(store service.Storage, engine *classification.Engine, _ []model.Category) error {
				return applyRuleUpdate(ctx, cmd, store, engine, args[0], classification.RuleUpdate{Active: &active}, verb)
			})
		},
	}
}

func applyRuleUpdate(ctx context.Context, cmd *cobra.Command, store service.Storage, engine *classification.Engine, id string, update classification.RuleUpdate, verb string) error {
	if _, ok := engine.Rule(id); !ok {
		return common.NewUserError(fmt.Sprintf("Regra %q não encontrada", id), fmt.Errorf("%w: rule %s", common.ErrNotFound, id))
	}
	if !engine.UpdateRule(id, update) {
		return common.NewUserError("A regra resultante seria inválida", fmt.Errorf("%w: rule %s", common.ErrInvalidRule, id))
	}

	if _, err := persistRule(ctx, store, engine, id); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Regra %s %s", id, verb)))
	return nil
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			if classification.IsBuiltinRuleID(id) {
				return common.NewUserError("Regras embutidas não podem ser removidas, use 'solviss rules disable'",
					fmt.Errorf("%w: %s", common.ErrBuiltinRule, id))
			}

			return withEngine(ctx, func(store service.Storage, engine *classification.Engine, _ []model.Category) error {
				if !engine.DeleteRule(id) {
					return common.NewUserError(fmt.Sprintf("Regra %q não encontrada", id), fmt.Errorf("%w: rule %s", common.ErrNotFound, id))
				}
				if err := store.DeleteRule(ctx, id); err != nil && !errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("failed to delete rule: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Regra %s removida", id)))
				return nil
			})
		},
	}
}

func testRuleCmd() *cobra.Command {
	var amount, date string

	cmd := &cobra.Command{
		Use:   "test <description>",
		Short: "Show how a description would be categorized",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			description := strings.Join(args, " ")

			value := decimal.Zero
			if amount != "" {
				d, err := optionalDecimal(amount, "amount")
				if err != nil {
					return err
				}
				value = *d
			}

			var when time.Time
			if date != "" {
				t, err := parseDate(date)
				if err != nil {
					return err
				}
				when = t
			}

			return withEngine(ctx, func(_ service.Storage, engine *classification.Engine, categories []model.Category) error {
				var result classification.Result
				if when.IsZero() {
					result = engine.Categorize(description, value, "")
				} else {
					result = engine.CategorizeTransaction(model.Transaction{Description: description, Amount: value, Date: when})
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderResult(result, categoryNames(categories)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "transaction amount")
	cmd.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD)")
	return cmd
}

func renderResult(result classification.Result, names map[string]string) string {
	if result.CategoryID == "" {
		return cli.FormatWarning("Nenhuma categoria sugerida")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Categoria:  %s\n", cli.BoldStyle.Render(names[result.CategoryID]))
	fmt.Fprintf(&b, "Confiança:  %s\n", cli.FormatConfidence(result.Confidence))
	fmt.Fprintf(&b, "Origem:     %s\n", result.Source)
	if result.RuleID != "" {
		fmt.Fprintf(&b, "Regra:      %s\n", result.RuleID)
	}
	if len(result.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "Palavras:   %s", strings.Join(result.MatchedKeywords, ", "))
	}
	return cli.RenderBox("Sugestão", strings.TrimRight(b.String(), "\n"))
}
