package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frahmantamala/billable-dashboard/internal/export"
	"github.com/frahmantamala/billable-dashboard/internal/report"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write billable reports to xlsx workbooks",
}

var exportDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Export the daily report, one workbook per user card",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), exportDaily)
	},
}

var exportMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Export the monthly report, one workbook per month card",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), exportMonthly)
	},
}

var (
	exportMonth  string
	exportTeamID int64
	exportUserID int64
	exportDir    string
)

type exporter func(ctx context.Context, svc *report.Service, viewer report.Viewer, filter report.Filter) (map[string]export.Table, error)

func runExport(ctx context.Context, fn exporter) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, s, err := loginCLI(ctx)
	if err != nil {
		return err
	}
	lg := logger.L()

	svc := report.NewService(s.Client, nil, lg)
	viewer := report.Viewer{UserID: s.User.UserID, Role: s.User.Role}
	tables, err := fn(ctx, svc, viewer, report.Filter{Month: exportMonth, TeamID: exportTeamID})
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		lg.Warn("nothing to export", "month", exportMonth)
		return nil
	}

	dir := exportDir
	if dir == "" {
		dir = s.Config.Export.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	for name, table := range tables {
		path := filepath.Join(dir, name)
		if err := writeTable(path, table); err != nil {
			return err
		}
		lg.Info("workbook written", "file", path, "rows", len(table.Rows))
	}
	return nil
}

func writeTable(path string, t export.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportDaily(ctx context.Context, svc *report.Service, viewer report.Viewer, filter report.Filter) (map[string]export.Table, error) {
	view, err := svc.Daily(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}
	out := map[string]export.Table{}
	for _, card := range view.Cards {
		if exportUserID != 0 && card.User.UserID != exportUserID {
			continue
		}
		out[export.FileName(card.User.UserName, view.Month)] = card.Table()
	}
	return out, nil
}

func exportMonthly(ctx context.Context, svc *report.Service, viewer report.Viewer, filter report.Filter) (map[string]export.Table, error) {
	view, err := svc.Monthly(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}
	out := map[string]export.Table{}
	for _, card := range view.Cards {
		out[export.FileName(card.Label)] = card.Table()
	}
	return out, nil
}

func init() {
	exportCmd.PersistentFlags().StringVar(&cliEmail, "email", "", "login email (or BILLABLE_EMAIL)")
	exportCmd.PersistentFlags().StringVar(&cliPassword, "password", "", "login password (or BILLABLE_PASSWORD)")
	exportCmd.PersistentFlags().StringVarP(&exportMonth, "month", "m", "", "month filter, YYYY-MM")
	exportCmd.PersistentFlags().Int64Var(&exportTeamID, "team-id", 0, "team filter for privileged roles")
	exportCmd.PersistentFlags().StringVarP(&exportDir, "out", "o", "", "output directory (defaults to export.output_dir)")
	exportDailyCmd.Flags().Int64Var(&exportUserID, "user-id", 0, "export only this user's card")

	exportCmd.AddCommand(exportDailyCmd)
	exportCmd.AddCommand(exportMonthlyCmd)
}
