package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/cli"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/config"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/dedupe"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
)

// scopeFlags select the transactions duplicate detection runs over.
type scopeFlags struct {
	account string
	since   string
	until   string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.account, "account", "", "only this account")
	cmd.Flags().StringVar(&f.since, "since", "", "only transactions on or after this date")
	cmd.Flags().StringVar(&f.until, "until", "", "only transactions on or before this date")
}

func (f *scopeFlags) filter() (service.TransactionFilter, error) {
	filter := service.TransactionFilter{AccountID: f.account}
	if f.since != "" {
		t, err := parseDate(f.since)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if f.until != "" {
		t, err := parseDate(f.until)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}
	return filter, nil
}

// detectGroups loads the scoped transactions and runs detection. Group numbers
// shown to the user are 1-based indexes into the result, which is stable for
// the same data and settings.
func detectGroups(ctx context.Context, store service.Storage, scope scopeFlags) ([]model.DuplicateGroup, int, error) {
	filter, err := scope.filter()
	if err != nil {
		return nil, 0, err
	}

	txns, err := store.GetTransactions(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transactions: %w", err)
	}

	detector, err := loadDetector(ctx, store)
	if err != nil {
		return nil, 0, err
	}
	return detector.DetectDuplicates(txns), len(txns), nil
}

func duplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find and resolve duplicate transactions",
	}

	cmd.AddCommand(detectDuplicatesCmd())
	cmd.AddCommand(explainDuplicatesCmd())
	cmd.AddCommand(applyDuplicatesCmd())
	cmd.AddCommand(duplicateSettingsCmd())

	return cmd
}

func detectDuplicatesCmd() *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List groups of likely duplicate transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			groups, scanned, err := detectGroups(ctx, store, scope)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Nenhuma duplicata em %d transações", scanned)))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle("Possíveis duplicatas"))
			for i, g := range groups {
				fmt.Fprintln(out, renderGroup(i+1, g))
			}
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d grupos em %d transações. Resolva com 'solviss duplicates apply <n> --action <ação>'", len(groups), scanned)))
			return nil
		},
	}

	scope.register(cmd)
	return cmd
}

func renderGroup(n int, g model.DuplicateGroup) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for i, t := range g.Transactions {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\n",
			marker, t.Date.Format("02/01/2006"), truncate(t.Description, 40),
			cli.FormatAmount(t.Amount), t.AccountID, cli.SubtleStyle.Render(t.ID))
	}
	_ = w.Flush()

	fmt.Fprintf(&b, "Motivo: %s\nSugestão: %s", g.Reason, cli.BoldStyle.Render(string(g.SuggestedAction)))

	title := fmt.Sprintf("Grupo %d  %s", n, cli.FormatConfidence(g.Confidence))
	return cli.RenderBox(title, b.String())
}

func explainDuplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <idA> <idB>",
		Short: "Show how two transactions are scored against each other",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			pair := make([]model.Transaction, 2)
			for i, id := range args {
				txn, err := store.GetTransactionByID(ctx, id)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("Transação %q não encontrada", id), err)
				}
				pair[i] = *txn
			}

			detector, err := loadDetector(ctx, store)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderBreakdown(detector.Explain(pair[0], pair[1])))
			return nil
		},
	}
}

func renderBreakdown(b dedupe.Breakdown) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Valor:      %.3f (peso %.2f)\n", b.Amount, dedupe.WeightAmount)
	fmt.Fprintf(&s, "Descrição:  %.3f (peso %.2f)\n", b.Description, dedupe.WeightDescription)
	fmt.Fprintf(&s, "Data:       %.3f (peso %.2f)\n", b.Date, dedupe.WeightDate)
	if b.AccountApplied {
		fmt.Fprintf(&s, "Conta:      %.3f (peso %.2f)\n", b.Account, dedupe.WeightAccount)
	}
	if b.CategoryApplied {
		fmt.Fprintf(&s, "Categoria:  %.3f (peso %.2f)\n", b.Category, dedupe.WeightCategory)
	}

	verdict := "não agrupadas"
	if b.Score >= dedupe.GroupThreshold {
		verdict = "agrupadas"
	}
	fmt.Fprintf(&s, "Total:      %s  %s", cli.FormatConfidence(b.Score), verdict)
	return cli.RenderBox("Comparação", s.String())
}

func applyDuplicatesCmd() *cobra.Command {
	var (
		scope    scopeFlags
		action   string
		yes      bool
		noBackup bool
	)

	cmd := &cobra.Command{
		Use:   "apply <group-number>",
		Short: "Resolve a duplicate group",
		Long: `Resolve the group numbered <group-number> in the output of 'duplicates detect' (use the same scope flags).

Actions: remove_duplicates, keep_first, keep_latest, merge, keep_all.
Without --action the suggested action is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return common.NewUserError(fmt.Sprintf("Número de grupo inválido: %q", args[0]), err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			groups, _, err := detectGroups(ctx, store, scope)
			if err != nil {
				return err
			}
			if n > len(groups) {
				return common.NewUserError(fmt.Sprintf("Grupo %d não existe, há %d grupos", n, len(groups)),
					fmt.Errorf("%w: group %d", common.ErrNotFound, n))
			}
			group := groups[n-1]

			chosen := group.SuggestedAction
			if action != "" {
				chosen = model.DuplicateAction(action)
			}

			result, err := dedupe.ApplyAction(group, chosen)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("Ação desconhecida %q", chosen), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderGroup(n, group))
			if len(result.ToDelete) == 0 && result.ToUpdate == nil {
				fmt.Fprintln(out, cli.FormatInfo(result.Message))
				return nil
			}

			fmt.Fprintf(out, "Ação %s: %d removida(s)", chosen, len(result.ToDelete))
			if result.ToUpdate != nil {
				fmt.Fprintf(out, ", 1 atualizada")
			}
			fmt.Fprintln(out)

			if !yes {
				ok, err := cli.Confirm(ctx, cli.NewLineReader(os.Stdin), out, "Aplicar?", false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.FormatInfo("Nada foi alterado"))
					return nil
				}
			}

			if !noBackup {
				path, err := store.AutoBackup(ctx, "duplicates")
				if err != nil {
					return fmt.Errorf("failed to back up database: %w", err)
				}
				fmt.Fprintln(out, cli.FormatInfo("Backup salvo em "+path))
			}

			if err := store.ApplyDuplicateResolution(ctx, result); err != nil {
				return fmt.Errorf("failed to apply resolution: %w", err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(result.Message))
			return nil
		},
	}

	scope.register(cmd)
	cmd.Flags().StringVar(&action, "action", "", "action to apply (default: suggested action)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking for confirmation")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "skip the automatic database backup")
	return cmd
}

func duplicateSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change duplicate detection settings",
	}
	cmd.AddCommand(showDuplicateSettingsCmd())
	cmd.AddCommand(setDuplicateSettingsCmd())
	return cmd
}

func showDuplicateSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			settings, err := effectiveDuplicateSettings(ctx, store)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSettings(settings))
			return nil
		},
	}
}

func renderSettings(s dedupe.Settings) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "amount-tolerance\t%.4g\n", s.AmountTolerance)
	fmt.Fprintf(w, "days-tolerance\t%d\n", s.DaysTolerance)
	fmt.Fprintf(w, "description-threshold\t%.4g\n", s.DescriptionSimilarityThreshold)
	fmt.Fprintf(w, "ignore-small-amounts\t%t\n", s.IgnoreSmallAmounts)
	fmt.Fprintf(w, "small-amount-threshold\t%s\n", s.SmallAmountThreshold.StringFixed(2))
	fmt.Fprintf(w, "exact-match-required\t%t\n", s.ExactMatchRequired)
	fmt.Fprintf(w, "consider-account\t%t\n", s.ConsiderAccount)
	fmt.Fprintf(w, "consider-category\t%t", s.ConsiderCategory)
	_ = w.Flush()
	return cli.RenderBox("Detecção de duplicatas", b.String())
}

// settingFlagNames are the "settings set" flags that change a value.
var settingFlagNames = []string{
	"amount-tolerance", "days-tolerance", "description-threshold", "ignore-small-amounts",
	"small-amount-threshold", "exact-match-required", "consider-account", "consider-category",
}

func setDuplicateSettingsCmd() *cobra.Command {
	var (
		amountTolerance      float64
		daysTolerance        int
		descriptionThreshold float64
		ignoreSmall          bool
		smallThreshold       string
		exactMatch           bool
		considerAccount      bool
		considerCategory     bool
		reset                bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; only the flags given are updated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			var update dedupe.SettingsUpdate
			if flags.Changed("amount-tolerance") {
				update.AmountTolerance = &amountTolerance
			}
			if flags.Changed("days-tolerance") {
				update.DaysTolerance = &daysTolerance
			}
			if flags.Changed("description-threshold") {
				update.DescriptionSimilarityThreshold = &descriptionThreshold
			}
			if flags.Changed("ignore-small-amounts") {
				update.IgnoreSmallAmounts = &ignoreSmall
			}
			if flags.Changed("small-amount-threshold") {
				d, err := optionalDecimal(smallThreshold, "small-amount-threshold")
				if err != nil {
					return err
				}
				update.SmallAmountThreshold = d
			}
			if flags.Changed("exact-match-required") {
				update.ExactMatchRequired = &exactMatch
			}
			if flags.Changed("consider-account") {
				update.ConsiderAccount = &considerAccount
			}
			if flags.Changed("consider-category") {
				update.ConsiderCategory = &considerCategory
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var current dedupe.Settings
			if reset {
				// Without a stored copy the config file applies again.
				if err := store.DeleteSetting(ctx, duplicateSettingsKey); err != nil {
					return fmt.Errorf("failed to reset settings: %w", err)
				}
				current, err = config.LoadDuplicateSettings(viper.GetViper())
				if err != nil {
					return err
				}
				if !anyChanged(cmd, settingFlagNames) {
					fmt.Fprintln(cmd.OutOrStdout(), renderSettings(current))
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Configurações restauradas do arquivo de configuração"))
					return nil
				}
			} else {
				current, err = effectiveDuplicateSettings(ctx, store)
				if err != nil {
					return err
				}
			}

			detector := dedupe.NewDetector(current)
			updated := detector.UpdateSettings(update)
			if err := updated.Validate(); err != nil {
				return common.NewUserError(fmt.Sprintf("Configuração inválida: %v", err), err)
			}

			if err := store.SaveSetting(ctx, duplicateSettingsKey, updated); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSettings(updated))
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Configurações salvas"))
			return nil
		},
	}

	defaults := dedupe.DefaultSettings()
	cmd.Flags().Float64Var(&amountTolerance, "amount-tolerance", defaults.AmountTolerance, "relative amount tolerance (0.02 = 2%)")
	cmd.Flags().IntVar(&daysTolerance, "days-tolerance", defaults.DaysTolerance, "maximum days between duplicates")
	cmd.Flags().Float64Var(&descriptionThreshold, "description-threshold", defaults.DescriptionSimilarityThreshold, "description similarity threshold")
	cmd.Flags().BoolVar(&ignoreSmall, "ignore-small-amounts", defaults.IgnoreSmallAmounts, "skip transactions below the small amount threshold")
	cmd.Flags().StringVar(&smallThreshold, "small-amount-threshold", defaults.SmallAmountThreshold.String(), "small amount threshold")
	cmd.Flags().BoolVar(&exactMatch, "exact-match-required", defaults.ExactMatchRequired, "require identical amounts")
	cmd.Flags().BoolVar(&considerAccount, "consider-account", defaults.ConsiderAccount, "score account equality")
	cmd.Flags().BoolVar(&considerCategory, "consider-category", defaults.ConsiderCategory, "score category equality")
	cmd.Flags().BoolVar(&reset, "reset", false, "discard saved settings and start from the config file")

	return cmd
}
