package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pb "github.com/ppiankov/pslang/api/pslang/v1"
	"github.com/ppiankov/pslang/internal/client"
	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/projector"
)

var (
	filterAudience string
	filterScrub    bool
	filterID       string
	filterServer   string
	filterJSON     bool
	filterTokenMap string
	filterTimeout  time.Duration
)

func init() {
	rootCmd.AddCommand(filterCmd)
	filterCmd.Flags().StringVarP(&filterAudience, "audience", "a", "", "Audience profile (default from policy)")
	filterCmd.Flags().BoolVar(&filterScrub, "scrub", false, "Replace credentials and identifiers with tokens")
	filterCmd.Flags().StringVar(&filterID, "id", "", "Project a stored document instead of a file")
	filterCmd.Flags().StringVar(&filterServer, "server", "", "Project through a pslang server at this address")
	filterCmd.Flags().BoolVar(&filterJSON, "json", false, "Print the projection with zone spans and stats as JSON")
	filterCmd.Flags().StringVar(&filterTokenMap, "token-map", "", "Write the scrub token map to this file")
	filterCmd.Flags().DurationVar(&filterTimeout, "timeout", client.DefaultTimeout, "Timeout for --server calls")
}

var filterCmd = &cobra.Command{
	Use:   "filter [file]",
	Short: "Project a document for an audience",
	Long: `Removes every zone the audience may not see and strips the delimiters of the
zones it may. Private, question and benchmark zones are always removed.

With --scrub, sensitive values left in the projection are replaced by
<<TYPE_N>> tokens; keep the --token-map file to restore them with detoken.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFilter,
}

// filterView is what the filter command prints, from either surface.
type filterView struct {
	RequestID  string            `json:"request_id"`
	Audience   string            `json:"audience"`
	Source     string            `json:"source"`
	Filtered   string            `json:"filtered"`
	Zones      any               `json:"zones"`
	Stats      model.FilterStats `json:"stats"`
	Scrubbed   int               `json:"scrubbed,omitempty"`
	PolicyHash string            `json:"policy_hash"`
}

func runFilter(cmd *cobra.Command, args []string) error {
	if filterID != "" && len(args) > 0 {
		return fmt.Errorf("--id and a file argument are mutually exclusive")
	}

	var (
		view *filterView
		err  error
	)
	if filterServer != "" {
		view, err = filterRemote(cmd.Context(), args)
	} else {
		view, err = filterLocal(cmd, args)
	}
	if err != nil {
		return err
	}

	if filterJSON {
		return printJSON(cmd.OutOrStdout(), view)
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.Filtered)
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d zones, %d removed (~%d tokens)\n",
		view.Audience, view.Stats.TotalZones, view.Stats.FilteredCount, view.Stats.TokensRemovedEstimate)
	if view.Stats.Overlapping > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d zones overlap; overlapping bytes were removed\n", view.Stats.Overlapping)
	}
	return nil
}

func filterLocal(cmd *cobra.Command, args []string) (*filterView, error) {
	req := projector.FilterRequest{
		DocumentID: filterID,
		Audience:   filterAudience,
		Scrub:      filterScrub,
	}
	if filterID == "" {
		doc, err := readInput(args)
		if err != nil {
			return nil, err
		}
		req.Document = doc
	}

	p, st, err := localProjector(filterID != "")
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}

	out, err := p.Filter(cmd.Context(), req)
	if err != nil {
		return nil, err
	}

	if out.Tokens != nil {
		if filterTokenMap != "" {
			if err := ingest.WriteJSON(filterTokenMap, out.Tokens); err != nil {
				return nil, fmt.Errorf("write token map: %w", err)
			}
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: %d values scrubbed; pass --token-map to keep them restorable\n", out.Scrubbed)
		}
	}

	return &filterView{
		RequestID:  out.RequestID,
		Audience:   out.Audience,
		Source:     string(out.Source),
		Filtered:   out.Filtered,
		Zones:      out.Zones,
		Stats:      out.Stats,
		Scrubbed:   out.Scrubbed,
		PolicyHash: out.PolicyHash,
	}, nil
}

func filterRemote(ctx context.Context, args []string) (*filterView, error) {
	if filterTokenMap != "" {
		return nil, fmt.Errorf("--token-map is not available with --server: token maps stay on the server host")
	}
	req := &pb.FilterRequest{
		DocumentID: filterID,
		Audience:   filterAudience,
		Scrub:      filterScrub,
	}
	if filterID == "" {
		doc, err := readInput(args)
		if err != nil {
			return nil, err
		}
		req.Document = doc
	}

	c, err := client.New(filterServer)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	c.SetTimeout(filterTimeout)

	resp, err := c.Filter(ctx, req)
	if err != nil {
		return nil, err
	}
	return &filterView{
		RequestID:  resp.RequestID,
		Audience:   resp.Audience,
		Source:     resp.Source,
		Filtered:   resp.Filtered,
		Zones:      resp.Zones,
		Stats:      resp.Stats,
		Scrubbed:   resp.Scrubbed,
		PolicyHash: resp.PolicyHash,
	}, nil
}
