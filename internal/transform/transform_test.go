package transform

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/zone"
)

func user(s string) model.Turn      { return model.Turn{Role: model.RoleUser, Content: s} }
func assistant(s string) model.Turn { return model.Turn{Role: model.RoleAssistant, Content: s} }
func system(s string) model.Turn    { return model.Turn{Role: model.RoleSystem, Content: s} }

func TestTransformEmptyConversation(t *testing.T) {
	res := Transform(nil)
	if res.PSLPrompt != "" {
		t.Errorf("prompt = %q, want empty", res.PSLPrompt)
	}
	if len(res.Tags) != 0 {
		t.Errorf("tags = %v, want none", res.Tags)
	}
	if len(res.Zones) != 0 {
		t.Errorf("zones = %v, want none", res.Zones)
	}
	if res.Signals != nil {
		t.Errorf("signals = %+v, want nil", res.Signals)
	}
}

func TestTransformOptimizationRequest(t *testing.T) {
	res := Transform([]model.Turn{user("Please optimize this slow query for performance")})

	wantTags := []string{"intent:optimization", "complexity:low"}
	if diff := cmp.Diff(wantTags, res.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	wantZones := []model.ZoneType{model.ZonePublic, model.ZoneBenchmark}
	if diff := cmp.Diff(wantZones, res.Zones); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}
	if res.Signals == nil {
		t.Fatal("expected signals")
	}
	if res.Signals.AgentAssistanceLevel != model.AssistanceLow {
		t.Errorf("assistance = %s, want low", res.Signals.AgentAssistanceLevel)
	}
	if !strings.Contains(res.PSLPrompt, BenchmarkInstruction) {
		t.Error("benchmark instruction missing from prompt")
	}
}

func TestAssistanceLevel(t *testing.T) {
	tests := []struct {
		assistants int
		want       model.AssistanceLevel
	}{
		{0, model.AssistanceLow},
		{1, model.AssistanceLow},
		{2, model.AssistanceLow},
		{3, model.AssistanceMedium},
		{5, model.AssistanceMedium},
		{6, model.AssistanceHigh},
		{7, model.AssistanceHigh},
	}
	for _, tt := range tests {
		turns := []model.Turn{user("hello")}
		for i := 0; i < tt.assistants; i++ {
			turns = append(turns, assistant("ok"))
		}
		res := Transform(turns)
		if res.Signals.AgentAssistanceLevel != tt.want {
			t.Errorf("%d assistant turns: got %s, want %s", tt.assistants, res.Signals.AgentAssistanceLevel, tt.want)
		}
	}
}

func TestIntent(t *testing.T) {
	tests := []struct {
		name  string
		turns []model.Turn
		want  string
	}{
		{"implementation", []model.Turn{user("Build me a dashboard")}, "implementation"},
		{"debugging", []model.Turn{user("Fix the login bug")}, "debugging"},
		{"optimization", []model.Turn{user("Please improve the loader")}, "optimization"},
		{"review", []model.Turn{user("Review my PR")}, "review"},
		{"general", []model.Turn{user("Hello there")}, "general"},
		{"first rule wins", []model.Turn{user("fix the build script")}, "implementation"},
		{"case insensitive", []model.Turn{user("DEBUG THIS")}, "debugging"},
		{"only first user turn", []model.Turn{system("build"), user("audit the config"), user("fix it")}, "review"},
		{"no user turn", []model.Turn{assistant("create something")}, "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intent(tt.turns); got != tt.want {
				t.Errorf("Intent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTechStackFirstSeenOrder(t *testing.T) {
	turns := []model.Turn{
		user("I use TypeScript with React and Postgres"),
		assistant("Vue would also work"),
		user("React and Tailwind please"),
	}
	got := TechStack(userTurns(turns))
	want := []string{"typescript", "react", "postgres", "tailwind"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tech stack mismatch (-want +got):\n%s", diff)
	}

	res := Transform(turns)
	if res.Tags[1] != "tech_stack:typescript,react,postgres,tailwind" {
		t.Errorf("tech tag = %q", res.Tags[1])
	}
}

func TestTechStackWordBoundaries(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Add guardrails to the reactive prompt", nil},
		{"Use Rails and React.", []string{"rails", "react"}},
		{"Migrate to PostgreSQL", []string{"postgres"}},
		{"check access rules swiftly", nil},
		{"vue-router setup", []string{"vue"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := TechStack([]model.Turn{user(tt.text)})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("tech stack mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComplexity(t *testing.T) {
	tests := []struct {
		length int
		want   string
	}{
		{10, "low"},
		{200, "low"},
		{201, "medium"},
		{500, "medium"},
		{501, "high"},
	}
	for _, tt := range tests {
		turns := []model.Turn{user(strings.Repeat("x", tt.length))}
		if got := Complexity(turns); got != tt.want {
			t.Errorf("length %d: got %s, want %s", tt.length, got, tt.want)
		}
	}
}

func TestComplexityUsesMeanOfAllTurns(t *testing.T) {
	turns := []model.Turn{
		user(strings.Repeat("x", 600)),
		assistant("ok"),
	}
	if got := Complexity(turns); got != "medium" {
		t.Errorf("got %s, want medium", got)
	}
}

func TestExpertise(t *testing.T) {
	tests := []struct {
		words int
		want  model.ExpertiseLevel
	}{
		{5, model.ExpertiseBeginner},
		{50, model.ExpertiseBeginner},
		{51, model.ExpertiseIntermediate},
		{100, model.ExpertiseIntermediate},
		{101, model.ExpertiseAdvanced},
	}
	for _, tt := range tests {
		turns := []model.Turn{user(strings.TrimSpace(strings.Repeat("word ", tt.words)))}
		if got := Signals(turns).UserExpertiseLevel; got != tt.want {
			t.Errorf("%d words: got %s, want %s", tt.words, got, tt.want)
		}
	}
}

func TestCodeQualityScore(t *testing.T) {
	tests := []struct {
		name  string
		turns []model.Turn
		want  float32
	}{
		{"nothing", []model.Turn{user("hello")}, 0},
		{"code fence", []model.Turn{user("```go\nfmt.Println()\n```")}, 0.5},
		{"test mention", []model.Turn{assistant("Add a Testing step")}, 0.5},
		{"both", []model.Turn{user("```py\npass\n```"), assistant("write a test")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Signals(tt.turns).CodeQualityScore; got != tt.want {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignalsCounts(t *testing.T) {
	turns := []model.Turn{user("a"), assistant("b"), user("c"), system("d")}
	got := Signals(turns)
	if got.ConversationTurns != 4 {
		t.Errorf("turns = %d, want 4", got.ConversationTurns)
	}
	if got.TimeToResolutionMinutes != 8 {
		t.Errorf("minutes = %d, want 8", got.TimeToResolutionMinutes)
	}
}

func TestDocumentAssembly(t *testing.T) {
	turns := []model.Turn{
		user("Build a React app"),
		assistant("Sure"),
		user("Now add Tailwind styling"),
	}
	res := Transform(turns)

	want := "<$.\nBuild a React app\n$.>\n\n" +
		"<#.\nTech stack: react, tailwind\nFollow-up requests:\n- Now add Tailwind styling\n#.>"
	if res.PSLPrompt != want {
		t.Errorf("prompt mismatch:\ngot:  %q\nwant: %q", res.PSLPrompt, want)
	}
	wantZones := []model.ZoneType{model.ZonePublic, model.ZonePassThrough}
	if diff := cmp.Diff(wantZones, res.Zones); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}
	wantTags := []string{"intent:implementation", "tech_stack:react,tailwind", "complexity:low"}
	if diff := cmp.Diff(wantTags, res.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowUpTruncation(t *testing.T) {
	long := strings.Repeat("a", 150)
	res := Transform([]model.Turn{user("Use Redis"), user(long)})
	want := "- " + strings.Repeat("a", 100) + "..."
	if !strings.Contains(res.PSLPrompt, want) {
		t.Errorf("expected truncated bullet in prompt:\n%s", res.PSLPrompt)
	}

	short := strings.Repeat("b", 100)
	res = Transform([]model.Turn{user("Use Redis"), user(short)})
	if strings.Contains(res.PSLPrompt, short+"...") {
		t.Error("100-character follow-up should not be truncated")
	}
}

func TestFollowUpCollapsesWhitespace(t *testing.T) {
	res := Transform([]model.Turn{user("Use Redis"), user("a\n\n   b\tc")})
	if !strings.Contains(res.PSLPrompt, "\n- a b c\n") {
		t.Errorf("expected single-line bullet in prompt:\n%s", res.PSLPrompt)
	}
}

func TestNoFollowUpsWithoutTechStack(t *testing.T) {
	res := Transform([]model.Turn{user("hello"), user("another request")})
	if strings.Contains(res.PSLPrompt, "Follow-up") {
		t.Errorf("unexpected pass-through block:\n%s", res.PSLPrompt)
	}
	if diff := cmp.Diff([]model.ZoneType{model.ZonePublic}, res.Zones); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}
}

func TestNoUserTurns(t *testing.T) {
	res := Transform([]model.Turn{assistant("hi"), system("be brief")})
	if res.PSLPrompt != "" {
		t.Errorf("prompt = %q, want empty", res.PSLPrompt)
	}
	if len(res.Zones) != 0 {
		t.Errorf("zones = %v, want none", res.Zones)
	}
	if res.Signals == nil {
		t.Fatal("signals should be computed for non-empty conversations")
	}
	if diff := cmp.Diff([]string{"intent:general", "complexity:low"}, res.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformedDocumentProjects(t *testing.T) {
	res := Transform([]model.Turn{
		user("Make the Postgres import faster"),
		user("Also compare with MySQL"),
	})

	zones := zone.Parse(res.PSLPrompt)
	if len(zones) != len(res.Zones) {
		t.Fatalf("parsed %d zones, transform emitted %d", len(zones), len(res.Zones))
	}

	proj := zone.Filter(res.PSLPrompt, zone.DefaultPolicy())
	if !strings.Contains(proj.Filtered, "Make the Postgres import faster") {
		t.Errorf("public request missing from projection:\n%s", proj.Filtered)
	}
	if !strings.Contains(proj.Filtered, "Tech stack: postgres, mysql") {
		t.Errorf("tech context missing from projection:\n%s", proj.Filtered)
	}
	if strings.Contains(proj.Filtered, BenchmarkInstruction) {
		t.Error("benchmark zone leaked into projection")
	}
	if proj.Stats.FilteredCount != 1 {
		t.Errorf("filtered count = %d, want 1", proj.Stats.FilteredCount)
	}
}
