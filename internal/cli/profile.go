package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/policy"
	"github.com/ppiankov/pslang/internal/profile"
	"github.com/ppiankov/pslang/internal/zone"
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileCheckCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage audience profiles",
	Long:  "List, inspect and validate the audiences documents can be projected for.",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available audiences",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show which zone types an audience sees",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileCheckCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Validate a profile loads cleanly",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileCheck,
}

func runProfileList(cmd *cobra.Command, args []string) error {
	p, _, err := localProjector(false)
	if err != nil {
		return err
	}
	audiences := p.Audiences()
	if len(audiences) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audiences available.")
		return nil
	}

	def := p.DefaultAudience()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tSCRUB\tSEES")
	for _, a := range audiences {
		name := a.Name
		if name == def {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", name, a.Source, a.Scrub, strings.Join(keptTypes(a.Policy), ", "))
	}
	return tw.Flush()
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	cfg, err := policy.LoadConfig(env.PolicyPath)
	if err != nil {
		return err
	}
	r, err := profile.Resolve(args[0], cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Audience: %s (%s)\n", r.Name, r.Source)
	if p, err := profile.Load(r.Name); err == nil && p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}
	fmt.Fprintln(w)
	for _, t := range model.ZoneTypes {
		mark := "hidden"
		switch {
		case t.AlwaysHidden():
			mark = "hidden (always)"
		case r.Policy.Keeps(t):
			mark = "visible"
		}
		d := model.Delimiters[t]
		fmt.Fprintf(w, "  %-13s %-5s %-5s %s\n", t, d.Open, d.Close, mark)
	}
	fmt.Fprintf(w, "\nScrub: %t\n", r.Scrub)
	return nil
}

func runProfileCheck(cmd *cobra.Command, args []string) error {
	name := args[0]
	p, err := profile.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load profile %q: %w", name, err)
	}
	if err := profile.Validate(p); err != nil {
		return fmt.Errorf("profile %q is invalid: %w", name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile %q is valid.\n", name)
	fmt.Fprintf(cmd.OutOrStdout(), "  Sees:  %s\n", strings.Join(keptTypes(p.Visibility), ", "))
	fmt.Fprintf(cmd.OutOrStdout(), "  Scrub: %t\n", p.Scrub)
	return nil
}

// keptTypes lists the zone types pol lets through, in scan order.
func keptTypes(pol zone.Policy) []string {
	var out []string
	for _, t := range model.ZoneTypes {
		if pol.Keeps(t) {
			out = append(out, string(t))
		}
	}
	if len(out) == 0 {
		return []string{"plain text only"}
	}
	return out
}
