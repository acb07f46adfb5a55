package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/redact"
)

var (
	detokenMap   string
	detokenCheck bool
)

func init() {
	rootCmd.AddCommand(detokenCmd)
	detokenCmd.Flags().StringVar(&detokenMap, "token-map", "", "Token map written by filter --token-map (required)")
	detokenCmd.Flags().BoolVar(&detokenCheck, "check", false, "Only report scrubbed values that appear literally in the input")
	_ = detokenCmd.MarkFlagRequired("token-map")
}

var detokenCmd = &cobra.Command{
	Use:   "detoken [file]",
	Short: "Restore scrubbed values in an agent reply",
	Long: `Replaces <<TYPE_N>> tokens with the values they stand for. With --check,
nothing is restored; the command fails if the reply contains any scrubbed
value in clear text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetoken,
}

func runDetoken(cmd *cobra.Command, args []string) error {
	tm, err := loadTokenMap(detokenMap)
	if err != nil {
		return err
	}
	text, err := readInput(args)
	if err != nil {
		return err
	}

	if detokenCheck {
		leaks := redact.CheckLeaks(text, tm)
		if len(leaks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "OK: no scrubbed values in input")
			return nil
		}
		for _, v := range leaks {
			fmt.Fprintf(cmd.ErrOrStderr(), "leak: %s\n", v)
		}
		return fmt.Errorf("%d scrubbed value(s) appear in clear text", len(leaks))
	}

	fmt.Fprint(cmd.OutOrStdout(), redact.Detoken(text, tm))
	return nil
}

func loadTokenMap(path string) (*redact.TokenMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token map: %w", err)
	}
	var tm redact.TokenMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("parse token map: %w", err)
	}
	return &tm, nil
}
