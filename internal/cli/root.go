package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/config"
)

var (
	verbose bool
	// env is resolved once per invocation, after .env has been loaded.
	env *config.Env
)

var rootCmd = &cobra.Command{
	Use:   "pslang",
	Short: "Zone annotations for prompts and documents",
	Long: "Parses zone-annotated documents, projects them for an audience, and turns\n" +
		"conversations into annotated prompts. Private zones never leave the machine.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotenv(); err != nil {
			return err
		}
		e, err := config.Load()
		if err != nil {
			return err
		}
		env = e
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging for long-running commands")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
