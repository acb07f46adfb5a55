package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/audit"
	"github.com/ppiankov/pslang/internal/policy"
	"github.com/ppiankov/pslang/internal/profile"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/store"
	"github.com/ppiankov/pslang/internal/systemd"
)

var doctorSystemdDir string

func init() {
	doctorCmd.Flags().StringVar(&doctorSystemdDir, "systemd", "", "Also check units written by pslang init --systemd in this directory")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and diagnose issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	if execPath, _ := os.Executable(); execPath != "" {
		checks = append(checks, checkResult{label: "pslang binary", ok: true, detail: fmt.Sprintf("%s (v%s)", execPath, version)})
	} else {
		checks = append(checks, checkResult{label: "pslang binary", ok: false, detail: "cannot determine executable path"})
	}

	// 2. Home directory.
	if info, err := os.Stat(env.Home); err == nil && info.IsDir() {
		checks = append(checks, checkResult{label: "home directory", ok: true, detail: env.Home})
	} else {
		checks = append(checks, checkResult{label: "home directory", ok: false, detail: "missing", fix: "pslang init"})
	}

	// 3. Policy.
	checks = append(checks, checkPolicy(env.PolicyPath))

	// 4. Profiles.
	checks = append(checks, checkProfiles())

	// 5. Scrub config.
	if _, err := redact.LoadConfig(""); err != nil {
		checks = append(checks, checkResult{label: "redact.yaml", ok: false, detail: err.Error()})
	} else {
		checks = append(checks, checkResult{label: "redact.yaml", ok: true, detail: "ok (optional)"})
	}

	// 6. Document store, only when it exists.
	if _, err := os.Stat(env.StorePath); err == nil {
		checks = append(checks, checkStore(cmd, env.StorePath))
	}

	// 7. Audit chain, only when a log exists.
	if _, err := os.Stat(env.AuditLog); err == nil {
		r := audit.Verify(env.AuditLog)
		if r.Valid {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: fmt.Sprintf("%d entries, chain intact", r.Lines)})
		} else {
			checks = append(checks, checkResult{
				label:  "audit log",
				ok:     false,
				detail: fmt.Sprintf("broken at line %d: %s", r.ErrorLine, r.Error),
				fix:    "pslang audit verify " + env.AuditLog,
			})
		}
	}

	// 8. systemd units, when asked.
	if doctorSystemdDir != "" {
		checks = append(checks, checkUnits(doctorSystemdDir)...)
	}

	// Print results.
	w := cmd.OutOrStdout()
	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(w, line)
	}

	if hasFailures {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "All checks passed.")
	return nil
}

func checkPolicy(path string) checkResult {
	if _, err := os.Stat(path); err != nil {
		return checkResult{label: "policy.yaml", ok: true, detail: "not found, using defaults"}
	}
	cfg, hash, err := policy.LoadConfigWithHash(path)
	if err != nil {
		return checkResult{label: "policy.yaml", ok: false, detail: err.Error(), fix: "pslang init-policy --stdout"}
	}
	if _, err := profile.Resolve("", cfg); err != nil {
		return checkResult{label: "policy.yaml", ok: false, detail: err.Error(), fix: "set default_audience to a known profile"}
	}
	return checkResult{label: "policy.yaml", ok: true, detail: hash[:19]}
}

func checkProfiles() checkResult {
	names := profile.List()
	var bad []string
	for _, name := range names {
		p, err := profile.Load(name)
		if err == nil {
			err = profile.Validate(p)
		}
		if err != nil {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return checkResult{
			label:  "profiles",
			ok:     false,
			detail: fmt.Sprintf("%d invalid: %v", len(bad), bad),
			fix:    "pslang profile check <name>",
		}
	}
	return checkResult{label: "profiles", ok: true, detail: fmt.Sprintf("%d available", len(names))}
}

func checkStore(cmd *cobra.Command, path string) checkResult {
	st, err := store.OpenSQLite(path)
	if err != nil {
		return checkResult{label: "document store", ok: false, detail: err.Error()}
	}
	defer st.Close()
	docs, err := st.List(cmd.Context())
	if err != nil {
		return checkResult{label: "document store", ok: false, detail: err.Error()}
	}
	return checkResult{label: "document store", ok: true, detail: fmt.Sprintf("%d documents", len(docs))}
}

func checkUnits(dir string) []checkResult {
	var checks []checkResult
	for _, name := range []string{systemd.ServeUnitName, systemd.WatchUnitName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			checks = append(checks, checkResult{label: name, ok: false, detail: "missing", fix: "pslang init --systemd " + dir})
			continue
		}
		if msg := systemd.CheckUnitHash(path); msg != "" {
			checks = append(checks, checkResult{label: name, ok: false, detail: msg, fix: "pslang init --force --systemd " + dir})
			continue
		}
		checks = append(checks, checkResult{label: name, ok: true, detail: path})
	}
	return checks
}
