package systemd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testUnitConfig = UnitConfig{
	Binary: "/usr/local/bin/pslang",
	Home:   "/var/lib/pslang",
	Inbox:  "/var/lib/pslang/inbox",
}

func TestServeUnit(t *testing.T) {
	unit := ServeUnit(testUnitConfig)
	for _, want := range []string{
		"ExecStart=/usr/local/bin/pslang serve",
		"Environment=PSLANG_HOME=/var/lib/pslang",
		"NoNewPrivileges=true",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("serve unit missing %q", want)
		}
	}
}

func TestWatchUnit(t *testing.T) {
	unit := WatchUnit(testUnitConfig)
	for _, want := range []string{
		"ExecStart=/usr/local/bin/pslang watch --root /var/lib/pslang/inbox",
		"PrivateNetwork=true",
		"ReadWritePaths=/var/lib/pslang /var/lib/pslang/inbox",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("watch unit missing %q", want)
		}
	}
}

func TestUnits(t *testing.T) {
	units := Units(testUnitConfig)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if _, ok := units[ServeUnitName]; !ok {
		t.Error("missing serve unit")
	}
	if _, ok := units[WatchUnitName]; !ok {
		t.Error("missing watch unit")
	}
}

func writeUnit(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ServeUnitName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckUnitHashNoRecord(t *testing.T) {
	path := writeUnit(t, "[Unit]\n")
	if msg := CheckUnitHash(path); msg != "" {
		t.Errorf("expected no warning without a recorded hash, got %q", msg)
	}
}

func TestCheckUnitHashMatch(t *testing.T) {
	path := writeUnit(t, ServeUnit(testUnitConfig))
	if err := RecordUnitHash(path); err != nil {
		t.Fatal(err)
	}
	if msg := CheckUnitHash(path); msg != "" {
		t.Errorf("expected match, got %q", msg)
	}
}

func TestCheckUnitHashModified(t *testing.T) {
	path := writeUnit(t, ServeUnit(testUnitConfig))
	if err := RecordUnitHash(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[Service]\nExecStart=/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	msg := CheckUnitHash(path)
	if !strings.Contains(msg, "modified") {
		t.Errorf("expected modification warning, got %q", msg)
	}
}

func TestRecordUnitHashMissingFile(t *testing.T) {
	if err := RecordUnitHash(filepath.Join(t.TempDir(), "absent.service")); err == nil {
		t.Error("expected error for missing unit file")
	}
}
