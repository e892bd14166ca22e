package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

func newReportsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect stored interview reports",
	}
	cmd.AddCommand(newReportsListCommand(opts))
	cmd.AddCommand(newReportsExportCommand(opts))
	return cmd
}

func loadReports(cmd *cobra.Command, opts *rootOptions, email string) ([]storage.Report, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.ValidationError("--email is required")
	}
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	defer a.close()

	return a.newService().GetReportsByEmail(cmd.Context(), email)
}

func newReportsListCommand(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports for a candidate email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := loadReports(cmd, opts, email)
			if err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Candidate email")
	return cmd
}

func printReports(w io.Writer, reports []storage.Report) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "no reports found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSESSION\tSCORE\tANSWERS\tCREATED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.SessionID, r.CandidateFitScore, len(r.Answers), r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func newReportsExportCommand(opts *rootOptions) *cobra.Command {
	var email, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a candidate's reports to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := loadReports(cmd, opts, email)
			if err != nil {
				return err
			}
			if err := WriteReportsXLSX(out, reports); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d report(s) to %s\n", len(reports), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Candidate email")
	cmd.Flags().StringVar(&out, "out", "reports.xlsx", "Output .xlsx path")
	return cmd
}

const (
	reportsSheet = "Reports"
	answersSheet = "Answers"
)

var (
	reportHeaders = []string{"Report ID", "Session ID", "Email", "Score", "Strengths", "Improvement Areas", "Suggested Follow-up", "Created"}
	answerHeaders = []string{"Report ID", "#", "Question", "Transcript", "Audio"}
)

// WriteReportsXLSX writes one row per report and one row per answer.
func WriteReportsXLSX(path string, reports []storage.Report) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", reportsSheet); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}
	if _, err := f.NewSheet(answersSheet); err != nil {
		return errors.Wrap(err, "failed to create sheet")
	}

	reportRows := make([][]any, 0, len(reports))
	var answerRows [][]any
	for _, r := range reports {
		reportRows = append(reportRows, []any{
			r.ID,
			r.SessionID,
			r.Email,
			r.CandidateFitScore,
			strings.Join(r.Strengths, "\n"),
			strings.Join(r.ImprovementAreas, "\n"),
			strings.Join(r.SuggestedFollowUp, "\n"),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
		for i, a := range r.Answers {
			answerRows = append(answerRows, []any{r.ID, i + 1, a.Question, a.Transcript, a.AudioURL})
		}
	}

	if err := writeSheet(f, reportsSheet, reportHeaders, reportRows); err != nil {
		return err
	}
	if err := writeSheet(f, answersSheet, answerHeaders, answerRows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return errors.Wrap(err, "failed to write header")
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return errors.Wrap(err, "failed to write cell")
			}
		}
	}
	return nil
}
