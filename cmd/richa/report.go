package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/richa/internal/report"
)

func newReportCmd(root *rootOptions) *cobra.Command {
	var plotPath string
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Print a stored session report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := root.openDB()
			if err != nil {
				return err
			}
			defer d.Close()

			doc, err := d.SessionReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			io.WriteString(cmd.OutOrStdout(), doc.Text())

			if plotPath == "" {
				return nil
			}
			var buf bytes.Buffer
			if err := report.WritePlot(&buf, "Attention "+doc.SessionID, doc.Rows); err != nil {
				return err
			}
			if err := os.WriteFile(plotPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write plot: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "plot written to %s\n", plotPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&plotPath, "plot", "", "also write a PNG bar chart of the report to this path")
	return cmd
}
