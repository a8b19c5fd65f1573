package cli

import (
	"fmt"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored research runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs yet")
				return nil
			}
			for _, run := range runs {
				status := "done"
				if !run.Success {
					status = "failed"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s  %6.1fs  %s  %s\n",
					run.CreatedAt.Format("2006-01-02 15:04"), status, run.ElapsedSeconds, shortID(run.ID), clip(run.Topic, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to list")

	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run's outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Topic:   %s\n", run.Topic)
			_, _ = fmt.Fprintf(out, "To:      %s\n", run.RecipientEmail)
			_, _ = fmt.Fprintf(out, "Format:  %s\n", run.ReportFormat)
			_, _ = fmt.Fprintf(out, "Success: %v (%.1fs)\n", run.Success, run.ElapsedSeconds)
			if run.ErrorMessage != "" {
				_, _ = fmt.Fprintf(out, "Error:   %s\n", run.ErrorMessage)
			}
			if run.SummaryOutput != "" {
				_, _ = fmt.Fprintf(out, "\n--- Summary ---\n%s\n", run.SummaryOutput)
			}
			if run.ResearchOutput != "" {
				_, _ = fmt.Fprintf(out, "\n--- Research ---\n%s\n", run.ResearchOutput)
			}
			if run.EmailOutput != "" {
				_, _ = fmt.Fprintf(out, "\n--- Delivery ---\n%s\n", run.EmailOutput)
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
