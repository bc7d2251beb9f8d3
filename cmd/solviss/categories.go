package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/cli"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

// standardCategories are created by "categories init". Their names match the
// default fragment table so every built-in rule gets bound.
var standardCategories = []model.Category{
	{Name: "Alimentação", Type: model.CategoryTypeExpense},
	{Name: "Transporte", Type: model.CategoryTypeExpense},
	{Name: "Moradia", Type: model.CategoryTypeExpense},
	{Name: "Saúde", Type: model.CategoryTypeExpense},
	{Name: "Educação", Type: model.CategoryTypeExpense},
	{Name: "Lazer", Type: model.CategoryTypeExpense},
	{Name: "Compras", Type: model.CategoryTypeExpense},
	{Name: "Salário", Type: model.CategoryTypeIncome},
	{Name: "Freelance", Type: model.CategoryTypeIncome},
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add and delete the income and expense categories transactions are assigned to.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(initCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, cli.InfoStyle.Render("Nenhuma categoria. Use 'solviss categories init' ou 'solviss categories add'."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Nome"),
				cli.TableHeaderStyle.Render("Tipo"),
				cli.TableHeaderStyle.Render("ID"))
			for _, cat := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", cat.Name, cat.Type, cli.SubtleStyle.Render(cat.ID))
			}
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var categoryType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ct := model.CategoryType(strings.ToLower(categoryType))
			if !ct.Valid() {
				return common.NewUserError("Tipo deve ser income ou expense",
					fmt.Errorf("%w: category type %q", common.ErrInvalidConfig, categoryType))
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			category, err := store.CreateCategory(ctx, args[0], ct)
			if errors.Is(err, common.ErrDuplicateEntry) {
				return common.NewUserError(fmt.Sprintf("Categoria %q já existe", args[0]), err)
			}
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Categoria %q criada (%s)", category.Name, category.Type)))
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryType, "type", string(model.CategoryTypeExpense), "category type (income, expense)")
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category",
		Long:  `Deactivate a category. Transactions keep their history; rules for it stop being loaded.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			category, err := findCategory(ctx, store, args[0])
			if err != nil {
				return err
			}

			if err := store.DeleteCategory(ctx, category.ID); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Categoria %q removida", category.Name)))
			return nil
		},
	}
}

func initCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the standard categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			created := 0
			for _, c := range standardCategories {
				if _, err := store.CreateCategory(ctx, c.Name, c.Type); err != nil {
					if errors.Is(err, common.ErrDuplicateEntry) {
						continue
					}
					return fmt.Errorf("failed to create category %q: %w", c.Name, err)
				}
				created++
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%d categorias criadas", created)))
			return nil
		},
	}
}
