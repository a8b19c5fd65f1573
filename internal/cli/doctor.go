package cli

import (
	"errors"
	"fmt"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/store"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify configuration and storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			settings := config.Load()

			var problems []string
			for _, key := range settings.MissingKeys() {
				problems = append(problems, "missing configuration: "+key)
			}
			if err := store.EnsureSchema(home); err != nil {
				problems = append(problems, "store not writable: "+err.Error())
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok (provider=%s model=%s)\n", settings.LLMProvider, settings.CurrentModel())
			return nil
		},
	}
	return cmd
}
