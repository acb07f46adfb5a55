package transform

// Keyword tables driving the heuristics. They are reviewable constants, not
// configuration: changing one changes tag output, so bump VocabularyVersion.

// VocabularyVersion identifies the keyword taxonomy below.
const VocabularyVersion = "2024.2"

// IntentRule maps trigger keywords to an intent tag value.
type IntentRule struct {
	Intent   string
	Keywords []string
}

// IntentRules are checked in order against the first user turn; the first
// rule with a matching keyword wins.
var IntentRules = []IntentRule{
	{Intent: "implementation", Keywords: []string{"build", "create", "implement"}},
	{Intent: "debugging", Keywords: []string{"fix", "debug", "error"}},
	{Intent: "optimization", Keywords: []string{"optimize", "improve"}},
	{Intent: "review", Keywords: []string{"review", "audit"}},
}

// DefaultIntent applies when no rule matches.
const DefaultIntent = "general"

// TechKeywords is the technology vocabulary: frameworks, languages,
// databases, auth systems and styling systems. Matching is case-insensitive
// and anchored at the start of a word, so "postgresql" counts as postgres
// but "guardrails" is not rails. Entries in WholeWordTechKeywords must also
// end at a word boundary.
var TechKeywords = []string{
	// frameworks and runtimes
	"react", "next.js", "vue", "angular", "svelte", "express.js", "node.js",
	"django", "flask", "fastapi", "rails", "spring boot", "laravel",
	// languages
	"typescript", "javascript", "python", "golang", "kotlin", "swift",
	// databases
	"postgres", "mysql", "mongodb", "redis", "sqlite", "supabase", "firebase",
	"prisma", "dynamodb", "graphql",
	// auth
	"oauth", "jwt", "auth0", "clerk", "nextauth", "saml",
	// styling
	"tailwind", "css", "sass", "bootstrap", "styled-components",
}

// WholeWordTechKeywords are TechKeywords that are prefixes of ordinary
// English words ("reactive", "swiftly", "clerks").
var WholeWordTechKeywords = map[string]bool{
	"react": true,
	"vue":   true,
	"rails": true,
	"swift": true,
	"clerk": true,
	"flask": true,
}

// BenchmarkKeywords signal that the user cares about measurable performance.
var BenchmarkKeywords = []string{
	"optimize", "performance", "benchmark", "faster", "improve",
	"compare", "measure", "speed", "efficient",
}

// BenchmarkInstruction is the fixed text placed in the benchmark zone.
const BenchmarkInstruction = "Benchmark the proposed solution: measure performance before and after the change and compare the results against the current baseline."

// FencedCodeMarker marks a fenced code block in a turn.
const FencedCodeMarker = "```"

// followUpLimit caps each follow-up request bullet, in characters.
const followUpLimit = 100
