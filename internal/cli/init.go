package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pslang/internal/config"
	"github.com/ppiankov/pslang/internal/daemon"
	"github.com/ppiankov/pslang/internal/policy"
	"github.com/ppiankov/pslang/internal/profile"
	"github.com/ppiankov/pslang/internal/systemd"
)

var (
	initProfile string
	initInbox   bool
	initForce   bool
	initSystemd string
)

func init() {
	initCmd.Flags().StringVar(&initProfile, "profile", "", "Also write a profile template with this name")
	initCmd.Flags().BoolVar(&initInbox, "inbox", false, "Create the inbox/outbox layout used by pslang watch")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	initCmd.Flags().StringVar(&initSystemd, "systemd", "", "Write systemd units for serve and watch into this directory")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap pslang configuration",
	Long: `Creates the pslang home directory ($PSLANG_HOME, default ~/.pslang) with a
default policy and an empty profiles directory.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	profilesDir, err := config.ProfilesDir()
	if err != nil {
		return err
	}

	var created []string

	if err := os.MkdirAll(profilesDir, 0o755); err != nil {
		return fmt.Errorf("create profiles directory: %w", err)
	}

	if wrote, err := writeIfMissing(env.PolicyPath, policy.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, env.PolicyPath)
	}

	if initProfile != "" {
		profPath := filepath.Join(profilesDir, initProfile+".yaml")
		if _, statErr := os.Stat(profPath); os.IsNotExist(statErr) {
			// Built-in profiles shadow user files of the same name.
			if _, err := profile.Load(initProfile); err == nil {
				return fmt.Errorf("profile %q is built in; pick another name", initProfile)
			}
		}
		if wrote, err := writeIfMissing(profPath, profile.InitProfile(initProfile)); err != nil {
			return err
		} else if wrote {
			created = append(created, profPath)
		}
	}

	if initInbox {
		dirs := daemon.DirsUnder(env.InboxRoot)
		if err := daemon.EnsureDirs(dirs); err != nil {
			return err
		}
		created = append(created, dirs.Inbox, dirs.Outbox)
	}

	if initSystemd != "" {
		units, err := writeUnits(initSystemd)
		if err != nil {
			return err
		}
		created = append(created, units...)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "pslang init complete.")
	fmt.Fprintln(w)
	if len(created) > 0 {
		fmt.Fprintln(w, "Created:")
		for _, path := range created {
			fmt.Fprintf(w, "  %s\n", path)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "All files already exist (use --force to overwrite).")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Verify:")
	fmt.Fprintln(w, "  pslang doctor")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Project a document:")
	fmt.Fprintln(w, "  pslang filter --audience publisher notes.md")
	return nil
}

// writeUnits renders the systemd units into dir and records their hashes
// for pslang doctor.
func writeUnits(dir string) ([]string, error) {
	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate pslang binary: %w", err)
	}
	units := systemd.Units(systemd.UnitConfig{
		Binary: binary,
		Home:   env.Home,
		Inbox:  env.InboxRoot,
	})

	var written []string
	for _, name := range []string{systemd.ServeUnitName, systemd.WatchUnitName} {
		path := filepath.Join(dir, name)
		wrote, err := writeIfMissing(path, units[name])
		if err != nil {
			return nil, err
		}
		if !wrote {
			continue
		}
		if err := systemd.RecordUnitHash(path); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
