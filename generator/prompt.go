package generator

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var promptTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// searchSectionHeading introduces the search skill's block in the user
// prompt. The history view locates the block by this exact string and the
// next "\n## " occurrence, so it must stay literal.
const searchSectionHeading = "## 참고할 최신 정보"

// sectionHeadings maps skill names to the heading the assembler emits
// before their summary. Skills absent here (reference posts, style guide)
// carry their own "## ..." heading inside the summary itself.
var sectionHeadings = map[string]string{
	SkillNameSearch: searchSectionHeading,
}

// PromptSection is one skill block of the user prompt.
type PromptSection struct {
	Heading string
	Body    string
}

type systemPromptData struct {
	Persona Persona
}

type userPromptData struct {
	Topic    string
	Sections []PromptSection
	Extra    string
}

// BuildSystemPrompt renders the persona-driven system prompt. Pure template
// substitution, no business logic.
func BuildSystemPrompt(persona Persona) (string, error) {
	var sb strings.Builder
	err := promptTemplates.ExecuteTemplate(&sb, "system.tmpl", systemPromptData{Persona: persona})
	if err != nil {
		return "", errors.Wrap(err, "rendering system prompt")
	}
	return sb.String(), nil
}

// BuildUserPrompt renders the user prompt for the requested post type.
// Skill summaries are concatenated verbatim in execution order, each
// preceded by its section heading where one is configured. Output is
// byte-identical for identical inputs.
func BuildUserPrompt(topic string, postType PostType, results []SkillResult, extra string) (string, error) {
	sections := make([]PromptSection, 0, len(results))
	for _, r := range results {
		sections = append(sections, PromptSection{
			Heading: sectionHeadings[r.SkillName],
			Body:    r.Summary,
		})
	}

	name := fmt.Sprintf("blog_%s.tmpl", postType)
	var sb strings.Builder
	err := promptTemplates.ExecuteTemplate(&sb, name, userPromptData{
		Topic:    topic,
		Sections: sections,
		Extra:    extra,
	})
	if err != nil {
		return "", errors.Wrapf(err, "rendering user prompt for post type %s", postType)
	}
	return sb.String(), nil
}
