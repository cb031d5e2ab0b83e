package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramaral11/slatescan/internal/config"
	"github.com/ramaral11/slatescan/internal/db"
	"github.com/ramaral11/slatescan/internal/history"
)

func newHistoryCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			database, err := db.New(cfg.DBPath(), nil)
			if err != nil {
				return fmt.Errorf("open history database: %w", err)
			}
			defer database.Close()

			repo := history.NewRepository(database.Conn())
			runs, err := repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID[:8],
					run.StartedAt.Local().Format(time.DateTime),
					run.InputFolder,
					fmt.Sprintf("%d", run.TotalScanned),
					fmt.Sprintf("%d", run.SlatesFound),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Started", "Input", "Scanned", "Slates"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")

	return cmd
}
