package systemd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// RecordUnitHash writes the SHA-256 of unitPath next to it.
func RecordUnitHash(unitPath string) error {
	data, err := os.ReadFile(unitPath)
	if err != nil {
		return fmt.Errorf("read unit file: %w", err)
	}
	h := sha256.Sum256(data)
	return os.WriteFile(HashPath(unitPath), []byte(hex.EncodeToString(h[:])+"\n"), 0600)
}

// CheckUnitHash compares unitPath against its recorded hash. Returns a
// warning if the unit changed, or "" when it matches or nothing was recorded.
func CheckUnitHash(unitPath string) string {
	stored, err := os.ReadFile(HashPath(unitPath))
	if err != nil {
		return ""
	}
	expected := strings.TrimSpace(string(stored))
	if len(expected) != 64 {
		return ""
	}

	data, err := os.ReadFile(unitPath)
	if err != nil {
		return fmt.Sprintf("cannot read unit file %s: %v", unitPath, err)
	}
	h := sha256.Sum256(data)
	actual := hex.EncodeToString(h[:])
	if actual == expected {
		return ""
	}
	return fmt.Sprintf("unit file %s modified since init (expected %s, got %s)",
		unitPath, expected[:16], actual[:16])
}
