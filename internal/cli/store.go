package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/store"
	"github.com/ppiankov/pslang/internal/zone"
)

var (
	storeName string
	storeTags []string
	storeJSON bool
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storePutCmd, storeGetCmd, storeListCmd, storeRmCmd)
	storePutCmd.Flags().StringVar(&storeName, "name", "", "Document name")
	storePutCmd.Flags().StringSliceVar(&storeTags, "tag", nil, "Tag to attach (repeatable)")
	storeListCmd.Flags().BoolVar(&storeJSON, "json", false, "Print summaries as JSON")
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage stored annotated documents",
	Long:  "Documents are stored unfiltered in a local SQLite file ($PSLANG_STORE).\nProject them with: pslang filter --id <id>",
}

var storePutCmd = &cobra.Command{
	Use:   "put [file]",
	Short: "Store an annotated document and print its ID",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStorePut,
}

var storeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored document unfiltered",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreGet,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, newest first",
	RunE:  runStoreList,
}

var storeRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreRm,
}

func runStorePut(cmd *cobra.Command, args []string) error {
	doc, err := readInput(args)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if n := len(zone.Overlaps(zone.Parse(doc))); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d overlapping zone pair(s)\n", n)
	}

	saved, err := st.Put(cmd.Context(), store.Document{Name: storeName, Content: doc, Tags: storeTags})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), saved.ID)
	return nil
}

func runStoreGet(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), doc.Content)
	return nil
}

func runStoreList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if storeJSON {
		return printJSON(cmd.OutOrStdout(), docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored documents.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tCREATED\tTAGS")
	for _, d := range docs {
		name := d.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", d.ID, name, d.Size,
			d.CreatedAt.Local().Format("2006-01-02 15:04"), strings.Join(d.Tags, " "))
	}
	return tw.Flush()
}

func runStoreRm(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
