package model

import (
	"strings"
	"testing"
)

func TestDelimitersCoverEveryZoneType(t *testing.T) {
	if len(Delimiters) != len(ZoneTypes) {
		t.Fatalf("expected %d delimiter pairs, got %d", len(ZoneTypes), len(Delimiters))
	}
	seen := make(map[string]ZoneType)
	for _, zt := range ZoneTypes {
		d, ok := Delimiters[zt]
		if !ok {
			t.Fatalf("no delimiters for %s", zt)
		}
		pair := d.Open + "|" + d.Close
		if other, dup := seen[pair]; dup {
			t.Errorf("%s and %s share delimiters %q", zt, other, pair)
		}
		seen[pair] = zt
	}
}

func TestDelimiterLiterals(t *testing.T) {
	tests := []struct {
		zt          ZoneType
		open, close string
	}{
		{ZonePassThrough, "<#.", "#.>"},
		{ZonePrivate, "<.", ".>"},
		{ZonePublic, "<$.", "$.>"},
		{ZoneAction, "<@.", "@.>"},
		{ZoneQuestion, "<?.", "?.>"},
		{ZoneBenchmark, "<.bm", ".bm>"},
	}
	for _, tt := range tests {
		d := Delimiters[tt.zt]
		if d.Open != tt.open || d.Close != tt.close {
			t.Errorf("%s: got %q/%q, want %q/%q", tt.zt, d.Open, d.Close, tt.open, tt.close)
		}
	}
}

func TestAlwaysHidden(t *testing.T) {
	hidden := map[ZoneType]bool{
		ZonePrivate:   true,
		ZoneQuestion:  true,
		ZoneBenchmark: true,
	}
	for _, zt := range ZoneTypes {
		if got := zt.AlwaysHidden(); got != hidden[zt] {
			t.Errorf("%s.AlwaysHidden() = %v, want %v", zt, got, hidden[zt])
		}
	}
}

func TestParseZoneType(t *testing.T) {
	for _, zt := range ZoneTypes {
		got, err := ParseZoneType(string(zt))
		if err != nil {
			t.Fatalf("ParseZoneType(%q): %v", zt, err)
		}
		if got != zt {
			t.Errorf("ParseZoneType(%q) = %q", zt, got)
		}
	}
	if _, err := ParseZoneType("secret"); err == nil {
		t.Error("expected error for unknown zone type")
	}
}

func TestWrap(t *testing.T) {
	got := ZonePublic.Wrap("hello")
	if !strings.HasPrefix(got, "<$.") || !strings.HasSuffix(got, "$.>") {
		t.Errorf("unexpected wrap: %q", got)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"User", RoleUser},
		{" human ", RoleUser},
		{"assistant", RoleAssistant},
		{"AI", RoleAssistant},
		{"system", RoleSystem},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseRole("narrator"); err == nil {
		t.Error("expected error for unknown role")
	}
}
