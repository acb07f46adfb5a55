package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/client"
	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/store"
)

var (
	transformFormat string
	transformJSON   bool
	transformSave   bool
	transformName   string
	transformServer string
)

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().StringVarP(&transformFormat, "format", "f", "", "Transcript format: json, jsonl, yaml, text (default: detect)")
	transformCmd.Flags().BoolVar(&transformJSON, "json", false, "Print the full result with tags and signals as JSON")
	transformCmd.Flags().BoolVar(&transformSave, "save", false, "Store the annotated prompt in the document store")
	transformCmd.Flags().StringVar(&transformName, "name", "", "Name for the stored document (with --save)")
	transformCmd.Flags().StringVar(&transformServer, "server", "", "Transform through a pslang server at this address")
}

var transformCmd = &cobra.Command{
	Use:   "transform [transcript]",
	Short: "Turn a conversation into an annotated prompt",
	Long: `Reads a conversation transcript and builds a zone-annotated prompt plus tags
and estimated signals. Transcripts may be a JSON array of {role, content},
JSONL, YAML, or plain text with "User:" / "Assistant:" / "System:" prefixes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTransform,
}

func runTransform(cmd *cobra.Command, args []string) error {
	turns, err := ingest.LoadTranscriptFile(inputPath(args), transformFormat, env.MaxBytes)
	if err != nil {
		return err
	}

	var res *model.TransformResult
	if transformServer != "" {
		res, err = transformRemote(cmd.Context(), turns)
	} else {
		res, err = transformLocal(cmd.Context(), turns)
	}
	if err != nil {
		return err
	}

	if transformSave {
		id, err := saveTransform(cmd.Context(), res)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "stored as %s\n", id)
	}

	if transformJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.PSLPrompt)
	fmt.Fprintf(cmd.ErrOrStderr(), "tags: %s\n", strings.Join(res.Tags, " "))
	return nil
}

func transformLocal(ctx context.Context, turns []model.Turn) (*model.TransformResult, error) {
	p, _, err := localProjector(false)
	if err != nil {
		return nil, err
	}
	out, err := p.Transform(ctx, turns)
	if err != nil {
		return nil, err
	}
	return &out.Result, nil
}

func transformRemote(ctx context.Context, turns []model.Turn) (*model.TransformResult, error) {
	c, err := client.New(transformServer)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	resp, err := c.Transform(ctx, turns)
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func saveTransform(ctx context.Context, res *model.TransformResult) (string, error) {
	st, err := openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()

	doc, err := st.Put(ctx, store.Document{
		Name:    transformName,
		Content: res.PSLPrompt,
		Tags:    res.Tags,
		Signals: res.Signals,
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}
