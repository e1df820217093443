package prompt

// Default returns the built-in prompt set
func Default() Set {
	return Set{
		Extract:    extractTemplate,
		Synthesize: synthesizeTemplate,
		Feedback:   feedbackTemplate,
		Policy: Policy{
			NumberChangeMinPct: 30,
			NumberChangeMaxPct: 60,
			PercentPointsMin:   10,
			PercentPointsMax:   25,
			TemporalUnits:      "months or quarters",
		},
	}
}

// ExtractData feeds the fact extraction template
type ExtractData struct {
	Title  string
	Source string
	Body   string
}

// SynthesizeData feeds the claim synthesis template
type SynthesizeData struct {
	Fact     string
	Context  string
	Source   string
	Date     string
	Guidance string
	Policy   Policy
}

// FeedbackClaim is one reported pair shown to the feedback analysis template
type FeedbackClaim struct {
	TrueClaim     string
	FalseClaim    string
	Explanation   string
	TimesReported int
}

// FeedbackData feeds the feedback analysis template
type FeedbackData struct {
	Claims []FeedbackClaim
}

var extractTemplate = Template{
	Name:      "extract",
	Version:   "v2",
	MaxTokens: 800,
	System: `You extract headline facts from news content for a news literacy game.
Only report what the content itself states. Never invent numbers, names or dates.`,
	User: `CONTENT:
Title: {{.Title}}
Source: {{.Source}}
Content: {{.Body}}

Extract the 1-2 most important headline facts from this content. Prefer facts with
specific numbers, named companies or people, places, and dates. Skip category
labels, show notes and promotional text.

Respond ONLY with a valid JSON array:
[
  {
    "fact": "specific factual statement",
    "context": "why this matters or what surrounds it"
  }
]`,
}

var synthesizeTemplate = Template{
	Name:      "synthesize",
	Version:   "v3",
	MaxTokens: 1000,
	System: `You write true/false claim pairs for a news literacy game. A player sees both
claims and must pick the true one. The pair must be solvable only by someone who
read or heard the original story, not by reasoning or general knowledge.

Build the false claim by changing exactly one detail of the true claim:
- Numbers: change by roughly {{.Policy.NumberChangeMinPct}}-{{.Policy.NumberChangeMaxPct}}% of the original value. Never a token change, never an order of magnitude.
- Percentages: move by {{.Policy.PercentPointsMin}}-{{.Policy.PercentPointsMax}} percentage points.
- Companies or people: swap for a like-for-like alternative (a direct competitor, someone in a comparable role).
- Dates: shift by {{.Policy.TemporalUnits}}, never by a single day and never by years.
Do not flip direction words alone (increased/decreased, won/lost); that is solvable by logic.
Keep the same sentence structure, tone and length for both claims.

The explanation is neutral news context written after the fact: what happened, who
was involved, when, and why it matters. It must never mention the game, the pair,
which claim is which, or what was altered.`,
	User: `FACT: {{.Fact}}
CONTEXT: {{.Context}}
SOURCE: {{.Source}}
DATE: {{.Date}}
{{- if .Guidance}}

{{.Guidance}}
{{- end}}

Respond ONLY with valid JSON:
{
  "true_claim": "...",
  "false_claim": "...",
  "explanation": "..."
}`,
}

var feedbackTemplate = Template{
	Name:      "feedback",
	Version:   "v1",
	MaxTokens: 800,
	System:    `You review claim pairs that players reported as bad in a news literacy game.`,
	User: `These claim pairs were reported by players:
{{range $i, $c := .Claims}}
{{inc $i}}. Reported {{$c.TimesReported}} times
   TRUE: {{$c.TrueClaim}}
   FALSE: {{$c.FalseClaim}}
   EXPLANATION: {{$c.Explanation}}
{{end}}
Identify the recurring problems (too easy, ambiguous, category text instead of news,
explanation gives the answer away, and so on). Reply with a short bullet list of
concrete patterns a claim writer should avoid. No preamble.`,
}
