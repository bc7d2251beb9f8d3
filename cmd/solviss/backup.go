package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/cli"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create and list database backups",
		Long: `Snapshots of the database are kept in a backups directory next to it.
"duplicates apply" creates one automatically before changing anything.`,
	}
	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	return cmd
}

func createBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Snapshot the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			name := "manual-" + time.Now().Format("20060102-150405")
			if len(args) == 1 {
				name = args[0]
			}

			path, err := store.Backup(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Backup salvo em "+path))
			return nil
		},
	}
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			backups, err := store.ListBackups()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("Nenhum backup"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Nome"),
				cli.TableHeaderStyle.Render("Criado em"),
				cli.TableHeaderStyle.Render("Tamanho"),
				cli.TableHeaderStyle.Render("Tipo"))
			for _, b := range backups {
				kind := "manual"
				if b.IsAuto {
					kind = "automático"
				}
				fmt.Fprintf(w, "%s\t%s\t%d KB\t%s\n", b.Name, b.CreatedAt.Format("02/01/2006 15:04"), b.Size/1024, kind)
			}
			return nil
		},
	}
}
