package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Request holds the caller-supplied inputs of one generation run.
type Request struct {
	Topic             string
	Persona           Persona
	Model             string
	PostType          PostType
	ExtraInstructions string
	// SkipSearch skips the search skill entirely: no execution, no entry in
	// the shared context.
	SkipSearch   bool
	Category     string
	RefPostCount int
	Tags         []string
}

// Pipeline drives one generation: build the shared context, run the enabled
// skills in registration order, assemble prompts, call the model, format the
// output, and return the immutable Generation record. Persisting the record
// is the caller's job.
//
// Execution is strictly sequential; later skills may read earlier results
// through the shared context. A skill error aborts the run (skills degrade
// instead of erroring for expected unavailability), and model faults
// propagate with no retry.
type Pipeline struct {
	llm      LLMClient
	registry *Registry
}

func NewPipeline(llm LLMClient, registry *Registry) (*Pipeline, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if registry == nil {
		return nil, errors.New("skill registry is required")
	}
	return &Pipeline{llm: llm, registry: registry}, nil
}

func (p *Pipeline) Run(ctx context.Context, req Request) (Generation, error) {
	if req.Topic == "" {
		return Generation{}, errors.New("topic is required")
	}
	if req.PostType == "" {
		req.PostType = PostTypeGeneral
	}

	sc := &SkillContext{
		Topic:         req.Topic,
		PersonaName:   req.Persona.Name,
		PersonaPrompt: req.Persona.SystemPrompt,
		Category:      req.Category,
		RefPostCount:  req.RefPostCount,
		Previous:      map[string]SkillResult{},
	}

	enabled, err := p.registry.Enabled()
	if err != nil {
		return Generation{}, err
	}

	var ordered []SkillResult
	for _, skill := range enabled {
		if req.SkipSearch && skill.Name() == SkillNameSearch {
			continue
		}
		started := time.Now()
		result, err := skill.Execute(ctx, sc)
		if err != nil {
			return Generation{}, errors.Wrapf(err, "skill %s", skill.Name())
		}
		log.WithFields(log.Fields{
			"skill":    skill.Name(),
			"duration": time.Since(started).Round(time.Millisecond),
		}).Debug("skill executed")

		ordered = append(ordered, result)
		sc.Previous[skill.Name()] = result
	}

	systemPrompt, err := BuildSystemPrompt(req.Persona)
	if err != nil {
		return Generation{}, err
	}
	userPrompt, err := BuildUserPrompt(req.Topic, req.PostType, ordered, req.ExtraInstructions)
	if err != nil {
		return Generation{}, err
	}

	outputMarkdown, err := p.llm.Generate(ctx, req.Model, systemPrompt, userPrompt)
	if err != nil {
		return Generation{}, errors.Wrap(err, "llm generation")
	}

	outputHTML, err := MarkdownToNaverHTML(outputMarkdown)
	if err != nil {
		return Generation{}, err
	}

	searchContext, err := encodeSearchContext(ordered)
	if err != nil {
		return Generation{}, err
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return Generation{
		Topic:          req.Topic,
		PersonaName:    req.Persona.Name,
		LLMModel:       req.Model,
		PostType:       req.PostType,
		SearchContext:  searchContext,
		PromptUsed:     fmt.Sprintf("[SYSTEM]\n%s\n\n[USER]\n%s", systemPrompt, userPrompt),
		OutputMarkdown: outputMarkdown,
		OutputHTML:     outputHTML,
		CreatedAt:      time.Now(),
		Tags:           tags,
	}, nil
}

// encodeSearchContext serializes the union of every skill's raw payload,
// keyed by skill name. Nil when no skills ran.
func encodeSearchContext(results []SkillResult) (*string, error) {
	if len(results) == 0 {
		return nil, nil
	}
	raws := make(map[string]map[string]any, len(results))
	for _, r := range results {
		raws[r.SkillName] = r.Raw
	}
	data, err := json.Marshal(raws)
	if err != nil {
		return nil, errors.Wrap(err, "encoding search context")
	}
	s := string(data)
	return &s, nil
}
