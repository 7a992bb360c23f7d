package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository"
	"github.com/woreda-portal/compliance-service/internal/service"
)

var reportQuery service.ReportQuery

// reportsCmd groups report commands.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect compliance reports",
}

// reportsListCmd prints a page of reports.
var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, newest first",
	RunE:  runReportsList,
}

func init() {
	flags := reportsListCmd.Flags()
	flags.StringVar(&reportQuery.Status, "status", "", "Comma separated statuses")
	flags.StringVar(&reportQuery.IssueType, "issue-type", "", "Comma separated issue types")
	flags.StringVar(&reportQuery.Urgency, "urgency", "", "Comma separated urgencies")
	flags.StringVar(&reportQuery.Search, "search", "", "Match summary text or report id")
	flags.IntVar(&reportQuery.Page, "page", 1, "Page number")
	flags.IntVar(&reportQuery.Limit, "limit", 20, "Page size")

	reportsCmd.AddCommand(reportsListCmd)
}

func runReportsList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	env, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	pool := env.pg.PoolHandle()
	reports := service.NewReportService(service.ReportDependencies{
		ReportRepo:  repository.NewReportRepository(pool),
		NoteRepo:    repository.NewAdminNoteRepository(pool),
		HistoryRepo: repository.NewReportHistoryRepository(pool),
		UserRepo:    repository.NewUserRepository(pool),
		Retrier:     persistence.NewRetrier(env.cfg.Persistence, env.logger),
		Config:      env.cfg.Reports,
		Logger:      env.logger,
	})
	page, err := reports.ListReports(ctx, domain.SystemActor(), reportQuery)
	if err != nil {
		return err
	}
	return writeReportTable(cmd.OutOrStdout(), page)
}

func writeReportTable(out io.Writer, page *domain.Page[domain.ComplianceReport]) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tURGENCY\tISSUE\tCREATED\tSUMMARY")
	for _, report := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			report.ID,
			report.Status,
			report.Urgency,
			report.IssueType,
			report.CreatedAt.Format("2006-01-02 15:04"),
			report.Summary)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d (%d reports)\n", page.Page, page.TotalPages, page.Total)
	return err
}
