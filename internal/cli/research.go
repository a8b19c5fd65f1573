package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/engine"
	"github.com/ahmedtarek-mel/prime-brief/internal/pipeline"
	"github.com/ahmedtarek-mel/prime-brief/internal/store"
	"github.com/ahmedtarek-mel/prime-brief/internal/validate"
	"github.com/ahmedtarek-mel/prime-brief/pkg/models"
	"github.com/spf13/cobra"
)

func newResearchCmd() *cobra.Command {
	var (
		email      string
		format     string
		numResults int
		focusAreas []string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "research <topic>",
		Short: "Run the research pipeline once and print the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			settings := config.Load()
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.SlogLevel()})))

			topic := validate.TopicDefault(args[0])
			if !topic.OK {
				return errors.New(topic.Err)
			}
			addr := validate.Email(email)
			if !addr.OK {
				return errors.New(addr.Err)
			}
			if res := validate.NumResults(numResults, models.MinNumResults, models.MaxNumResults); !res.OK {
				return errors.New(res.Err)
			}

			var eng engine.Engine = engine.NewCrewEngine()
			if dryRun {
				eng = &engine.StubEngine{}
			} else if missing := settings.MissingKeys(); len(missing) > 0 {
				return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
			}

			st, err := store.Open(home)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc := pipeline.NewService(settings, eng, config.RolesDir(home))
			result := svc.Execute(cmd.Context(), pipeline.Request{
				Topic:          topic.Value,
				RecipientEmail: addr.Value,
				ReportFormat:   agent.ReportFormat(format),
				NumResults:     numResults,
				FocusAreas:     focusAreas,
			}, func(percent int, message string) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", percent, message)
			})

			run := store.Run{
				ID:             store.NewRunID(),
				Topic:          topic.Value,
				RecipientEmail: addr.Value,
				ReportFormat:   format,
				NumResults:     numResults,
				Success:        result.Success,
				ResearchOutput: result.ResearchOutput,
				SummaryOutput:  result.SummaryOutput,
				EmailOutput:    result.EmailOutput,
				ErrorMessage:   result.ErrorMessage,
				ElapsedSeconds: result.ElapsedSeconds,
				CreatedAt:      result.CreatedAt,
			}
			if err := st.CreateRun(cmd.Context(), run); err != nil {
				slog.Warn("could not persist run", "err", err)
			}

			if !result.Success {
				if result.ResearchOutput != "" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.ResearchOutput)
				}
				return fmt.Errorf("research failed: %s", result.ErrorMessage)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.SummaryOutput)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Done in %.1fs (run %s)\n", result.ElapsedSeconds, run.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Recipient email address (required)")
	cmd.Flags().StringVar(&format, "format", string(agent.FormatSummaryReport), "Report format: Summary Report, Detailed Analysis, or Executive Brief")
	cmd.Flags().IntVar(&numResults, "num-results", 5, "Number of sources to gather (1-10)")
	cmd.Flags().StringSliceVar(&focusAreas, "focus", nil, "Optional focus areas (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Use the deterministic stub engine (no model or tool calls)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
