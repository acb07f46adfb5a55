package daemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/pslang/internal/config"
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/redact"
)

const testDoc = "intro <. my salary is 90k .> <$. ship the release notes $.> <@. run make release @.>"

func testProjector(t *testing.T, maxBytes int) *projector.Projector {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())
	p, err := projector.New(projector.Config{
		PolicyPath: filepath.Join(t.TempDir(), "policy.yaml"),
		MaxBytes:   maxBytes,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func testProcessor(t *testing.T) (*Processor, DirConfig) {
	t.Helper()
	dirs := DirsUnder(t.TempDir())
	if err := EnsureDirs(dirs); err != nil {
		t.Fatal(err)
	}
	return NewProcessor(ProcessorConfig{Dirs: dirs, Projector: testProjector(t, 0)}), dirs
}

func writeJob(t *testing.T, dir string, job *Job) string {
	t.Helper()
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, job.ID+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readResult(t *testing.T, dirs DirConfig, id string) *Result {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dirs.Outbox, id+".json"))
	if err != nil {
		t.Fatalf("expected result for %s: %v", id, err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	return &r
}

func TestProcessFilterJob(t *testing.T) {
	p, dirs := testProcessor(t)
	path := writeJob(t, dirs.Inbox, &Job{
		ID:       "job-001",
		Kind:     JobKindFilter,
		Audience: "publisher",
		Document: testDoc,
	})

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	r := readResult(t, dirs, "job-001")
	if r.Status != ResultDone {
		t.Fatalf("status = %q, error = %q", r.Status, r.Error)
	}
	if !strings.Contains(r.Filtered, "ship the release notes") {
		t.Errorf("filtered = %q", r.Filtered)
	}
	if strings.Contains(r.Filtered, "salary") || strings.Contains(r.Filtered, "make release") {
		t.Errorf("projection leaked hidden zones: %q", r.Filtered)
	}
	if r.Stats == nil || r.Stats.FilteredCount != 2 {
		t.Errorf("stats = %+v", r.Stats)
	}
	if r.RequestID == "" {
		t.Error("expected request id")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("job should leave the inbox")
	}
	if _, err := os.Stat(filepath.Join(dirs.ProcessingDir(), "job-001.json")); !os.IsNotExist(err) {
		t.Error("processed job should not stay in processing")
	}
}

func TestProcessResultCarriesNoHiddenContent(t *testing.T) {
	p, dirs := testProcessor(t)
	path := writeJob(t, dirs.Inbox, &Job{ID: "job-002", Kind: JobKindFilter, Audience: "publisher", Document: testDoc})

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dirs.Outbox, "job-002.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, hidden := range []string{"salary", "make release"} {
		if strings.Contains(string(data), hidden) {
			t.Errorf("result file leaked %q", hidden)
		}
	}
}

func TestProcessScrubWritesTokenMap(t *testing.T) {
	p, dirs := testProcessor(t)
	path := writeJob(t, dirs.Inbox, &Job{
		ID:       "job-scrub",
		Kind:     JobKindFilter,
		Audience: "publisher",
		Document: "<$. mail ops@example.com $.>",
		Scrub:    true,
	})

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	r := readResult(t, dirs, "job-scrub")
	if r.Scrubbed != 1 || strings.Contains(r.Filtered, "ops@example.com") {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.TokenMapRef != filepath.Join(dirs.TokensDir(), "tokens-job-scrub.json") {
		t.Errorf("token map ref = %q", r.TokenMapRef)
	}

	data, err := os.ReadFile(r.TokenMapRef)
	if err != nil {
		t.Fatal(err)
	}
	var tm redact.TokenMap
	if err := json.Unmarshal(data, &tm); err != nil {
		t.Fatal(err)
	}
	if v, ok := tm.Resolve("<<EMAIL_1>>"); !ok || v != "ops@example.com" {
		t.Errorf("resolve = %q %v", v, ok)
	}
	info, err := os.Stat(r.TokenMapRef)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("token map mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestProcessTransformJob(t *testing.T) {
	p, dirs := testProcessor(t)
	path := writeJob(t, dirs.Inbox, &Job{
		ID:   "conv-001",
		Kind: JobKindTransform,
		Turns: []model.Turn{
			{Role: model.RoleUser, Content: "Fix the error in my React app"},
			{Role: model.RoleAssistant, Content: "Share the stack trace."},
		},
	})

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	r := readResult(t, dirs, "conv-001")
	if r.Status != ResultDone || r.Transform == nil {
		t.Fatalf("unexpected result %+v", r)
	}
	if len(r.Transform.Tags) == 0 || r.Transform.Tags[0] != "intent:debugging" {
		t.Errorf("tags = %v", r.Transform.Tags)
	}
}

func TestProcessInvalidJSON(t *testing.T) {
	p, dirs := testProcessor(t)
	path := filepath.Join(dirs.Inbox, "bad-001.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	r := readResult(t, dirs, "bad-001")
	if r.Status != ResultFailed || !strings.Contains(r.Error, "invalid JSON") {
		t.Errorf("unexpected result %+v", r)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid job should be removed from inbox")
	}
}

func TestProcessValidationFailure(t *testing.T) {
	p, dirs := testProcessor(t)
	path := writeJob(t, dirs.Inbox, &Job{ID: "job-003", Kind: "investigate"})

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	r := readResult(t, dirs, "job-003")
	if r.Status != ResultFailed || !strings.Contains(r.Error, "validation failed") {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestProcessUnknownAudienceFails(t *testing.T) {
	p, dirs := testProcessor(t)
	path := writeJob(t, dirs.Inbox, &Job{ID: "job-004", Kind: JobKindFilter, Audience: "nobody", Document: testDoc})

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	r := readResult(t, dirs, "job-004")
	if r.Status != ResultFailed || !strings.Contains(r.Error, "nobody") {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Filtered != "" {
		t.Error("failed job must not carry text")
	}
}

func TestProcessRejectsSymlink(t *testing.T) {
	p, dirs := testProcessor(t)

	target := filepath.Join(t.TempDir(), "secret.json")
	if err := os.WriteFile(target, []byte(`{"id":"x","kind":"filter"}`), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dirs.Inbox, "link.json")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := p.Process(context.Background(), link)
	if err == nil || !strings.Contains(err.Error(), "symlink") {
		t.Fatalf("expected symlink rejection, got %v", err)
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Error("symlink should be removed")
	}
	if _, err := os.Stat(target); err != nil {
		t.Error("symlink target must be left alone")
	}
}

func TestProcessRejectsOversizeFile(t *testing.T) {
	dirs := DirsUnder(t.TempDir())
	if err := EnsureDirs(dirs); err != nil {
		t.Fatal(err)
	}
	p := NewProcessor(ProcessorConfig{Dirs: dirs, Projector: testProjector(t, 16)})

	path := filepath.Join(dirs.Inbox, "big-001.json")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", jobEnvelope+64)), 0600); err != nil {
		t.Fatal(err)
	}

	if err := p.Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	r := readResult(t, dirs, "big-001")
	if r.Status != ResultFailed || !strings.Contains(r.Error, "exceeds") {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestJobID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/inbox/job-001.json", "job-001"},
		{"/inbox/a_b.json", "a_b"},
		{"/inbox/bad name.json", ""},
		{"/inbox/.json", ""},
	}
	for _, tt := range tests {
		if got := jobID(tt.path); got != tt.want {
			t.Errorf("jobID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
