package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInit(t *testing.T) {
	home := setupHome(t)

	out, _, err := runCLI(t, "init")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Created:") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := os.Stat(filepath.Join(home, "profiles")); err != nil {
		t.Error("profiles directory not created")
	}
	data, err := os.ReadFile(filepath.Join(home, "policy.yaml"))
	if err != nil {
		t.Fatalf("policy.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "default_audience") {
		t.Error("policy.yaml missing default_audience")
	}
}

func TestRunInitNoOverwriteWithoutForce(t *testing.T) {
	home := setupHome(t)

	sentinel := "# sentinel content\n"
	policyPath := writeFile(t, home, "policy.yaml", sentinel)

	out, _, err := runCLI(t, "init")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "All files already exist") {
		t.Errorf("unexpected output:\n%s", out)
	}

	data, _ := os.ReadFile(policyPath)
	if string(data) != sentinel {
		t.Error("policy.yaml was overwritten without --force")
	}
}

func TestRunInitForceOverwrites(t *testing.T) {
	home := setupHome(t)

	sentinel := "# sentinel content\n"
	policyPath := writeFile(t, home, "policy.yaml", sentinel)

	if _, _, err := runCLI(t, "init", "--force"); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	data, _ := os.ReadFile(policyPath)
	if string(data) == sentinel {
		t.Error("policy.yaml was NOT overwritten with --force")
	}
}

func TestRunInitProfileAndInbox(t *testing.T) {
	home := setupHome(t)

	if _, _, err := runCLI(t, "init", "--profile", "reviewer", "--inbox"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(home, "profiles", "reviewer.yaml"),
		filepath.Join(home, "inbox", "inbox"),
		filepath.Join(home, "inbox", "outbox"),
		filepath.Join(home, "inbox", "state", "tokens"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not created: %v", p, err)
		}
	}
}

func TestRunInitRejectsBuiltinProfileName(t *testing.T) {
	setupHome(t)

	if _, _, err := runCLI(t, "init", "--profile", "publisher"); err == nil {
		t.Fatal("expected error for built-in profile name")
	}
}

func TestWriteIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should return true")
	}

	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should return false without force")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content changed without force: %q", string(data))
	}

	initForce = true
	defer func() { initForce = false }()
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("force write failed: %v", err)
	}
	if !wrote {
		t.Error("force write should return true")
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("force write didn't overwrite: %q", string(data))
	}
}

func TestDoctorOnFreshInit(t *testing.T) {
	setupHome(t)

	if _, _, err := runCLI(t, "init"); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, "doctor")
	if err != nil {
		t.Fatalf("doctor failed after init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "All checks passed.") {
		t.Errorf("unexpected doctor output:\n%s", out)
	}
}

func TestDoctorReportsBrokenPolicy(t *testing.T) {
	home := setupHome(t)
	writeFile(t, home, "policy.yaml", "default_audience: [not a string\n")

	out, _, err := runCLI(t, "doctor")
	if err == nil {
		t.Fatalf("doctor should fail on broken policy:\n%s", out)
	}
	if !strings.Contains(out, "✗ policy.yaml") {
		t.Errorf("policy check not reported:\n%s", out)
	}
}

func TestInitSystemdAndDoctor(t *testing.T) {
	setupHome(t)
	unitDir := t.TempDir()

	if _, _, err := runCLI(t, "init", "--systemd", unitDir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(unitDir, "pslang-watch.service"))
	if err != nil {
		t.Fatalf("watch unit not written: %v", err)
	}
	if !strings.Contains(string(data), " watch --root ") {
		t.Errorf("unexpected watch unit:\n%s", data)
	}

	if out, _, err := runCLI(t, "doctor", "--systemd", unitDir); err != nil {
		t.Fatalf("doctor failed on fresh units: %v\n%s", err, out)
	}

	writeFile(t, unitDir, "pslang-serve.service", "[Service]\nExecStart=/bin/sh\n")
	out, _, err := runCLI(t, "doctor", "--systemd", unitDir)
	if err == nil {
		t.Fatalf("doctor should flag an edited unit:\n%s", out)
	}
	if !strings.Contains(out, "✗ pslang-serve.service") {
		t.Errorf("unit check not reported:\n%s", out)
	}
}
