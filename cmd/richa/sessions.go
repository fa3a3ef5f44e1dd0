package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCmd(root *rootOptions) *cobra.Command {
	var remove string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := root.openDB()
			if err != nil {
				return err
			}
			defer d.Close()

			if remove != "" {
				if err := d.DeleteSession(cmd.Context(), remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted session %s\n", remove)
				return nil
			}

			sessions, err := d.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tSELECTOR\tSTARTED\tDURATION\tBUCKETS")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
					s.ID,
					s.Label,
					s.Selector,
					s.StartedAt.Format(time.DateTime),
					s.EndedAt.Sub(s.StartedAt).Round(time.Second),
					s.Buckets,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&remove, "delete", "", "delete the stored session with this ID instead of listing")
	return cmd
}
