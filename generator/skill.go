package generator

import "context"

// SkillContext carries the request-scoped inputs shared by every skill in
// one pipeline run. It holds data only; collaborators a skill needs (post
// store, style store) are injected when the skill is constructed.
type SkillContext struct {
	Topic        string
	PersonaName  string
	PersonaPrompt string
	Category     string
	// RefPostCount caps how many reference posts are injected. 0 means all.
	RefPostCount int
	// Previous maps skill name to the result of skills that already ran in
	// this invocation. Later skills may read earlier outputs.
	Previous map[string]SkillResult
}

// SkillResult is what a skill hands back to the pipeline.
type SkillResult struct {
	// SkillName matches the producing skill's Name().
	SkillName string `json:"skill_name"`
	// Data carries skill-specific structured fields (counts, truncation
	// parameters, selected items).
	Data map[string]any `json:"data"`
	// Summary is prompt-ready prose+markdown, injected verbatim.
	Summary string `json:"summary"`
	// Raw keeps the unprocessed upstream response for persistence/debugging.
	Raw map[string]any `json:"raw,omitempty"`
}

// Skill is one pluggable context-gathering unit. Implementations must not
// mutate the shared context; the pipeline writes results back itself.
//
// Expected unavailability (missing credential, empty store) is not an
// error: return a degraded result whose Summary states the reason and keep
// the error nil. Only unexpected faults should be returned as errors.
type Skill interface {
	Name() string
	Description() string
	Execute(ctx context.Context, sc *SkillContext) (SkillResult, error)
}
