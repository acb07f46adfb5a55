package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var parseJSON bool

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print zones as JSON")
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "List the zones of an annotated document",
	Long:  "Reads a document (stdin when no file is given) and lists every zone with its\nbyte offsets. Overlapping zones are reported; the document is never modified.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	doc, err := readInput(args)
	if err != nil {
		return err
	}
	p, _, err := localProjector(false)
	if err != nil {
		return err
	}
	res, err := p.Parse(cmd.Context(), doc)
	if err != nil {
		return err
	}

	if res.OverlapPairs > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d overlapping zone pair(s); the document is malformed\n", res.OverlapPairs)
	}
	if parseJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}

	if len(res.Zones) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No zones found.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSTART\tEND\tCONTENT")
	for _, z := range res.Zones {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", z.Type, z.Start, z.End, preview(z.Inner, 48))
	}
	return tw.Flush()
}

// preview flattens s to one line of at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
