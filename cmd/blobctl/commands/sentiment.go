package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/alphaflow/blobkit/pkg/report"
	"github.com/alphaflow/blobkit/pkg/sentiment"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

const defaultPDFFile = "fear_greed_index.pdf"

func newSentimentCmd(a *app) *cobra.Command {
	var format, output string
	var last int

	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Fetch the crypto fear & greed index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "table", "csv", "pdf":
			default:
				return fmt.Errorf("unknown format %q: use table, csv or pdf", format)
			}

			client := sentiment.NewClient(
				sentiment.WithURL(a.cfg.SentimentURL),
				sentiment.WithLogger(a.logger),
				sentiment.WithReporter(a.printer),
			)
			idx, err := client.FetchIndex(cmd.Context())
			if err != nil {
				return err
			}
			if idx == nil {
				return errReported
			}
			if last > 0 && last < len(idx.Rows) {
				idx.Rows = idx.Rows[:last]
			}

			switch format {
			case "csv":
				return writeOutput(a, output, func(w io.Writer) error { return report.WriteCSV(w, idx) })
			case "pdf":
				if output == "" || output == "-" {
					output = defaultPDFFile
				}
				data, err := report.RenderPDF("Crypto Fear & Greed Index", idx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				a.printer.Successf("Wrote %d rows to %s", idx.Len(), output)
				return nil
			}
			return writeOutput(a, output, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, renderTable(w, idx))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout, or "+defaultPDFFile+" for pdf)")
	cmd.Flags().IntVar(&last, "last", 0, "only keep the most recent N rows (0 keeps all)")
	return cmd
}

// writeOutput writes to stdout, or to path when one is given.
func writeOutput(a *app, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(a.stdout)
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.printer.Successf("Wrote %s", path)
	return nil
}

func renderTable(w io.Writer, idx *sentiment.Table) string {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(idx.Header()...).
		Rows(idx.Records()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
