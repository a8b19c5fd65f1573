// Package cli wires the primebrief commands: serve (web UI + API), research
// (one-shot run), runs (history), and doctor (configuration check).
package cli

import (
	"os"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "primebrief",
		Short:        "Prime Brief: AI research reports by email, with a web UI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Prime Brief home directory (default: ~/.primebrief, env: PRIMEBRIEF_HOME)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newResearchCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newDoctorCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
