package generator

import (
	"fmt"
	"time"
)

// PostType is the structural template requested for the article.
type PostType string

const (
	PostTypeGeneral  PostType = "general"
	PostTypeReview   PostType = "review"
	PostTypeListicle PostType = "listicle"
)

// ParsePostType validates a post type string; empty defaults to general.
func ParsePostType(s string) (PostType, error) {
	switch PostType(s) {
	case "":
		return PostTypeGeneral, nil
	case PostTypeGeneral, PostTypeReview, PostTypeListicle:
		return PostType(s), nil
	default:
		return "", fmt.Errorf("unknown post type %q (general/review/listicle)", s)
	}
}

// Persona is a named audience bundle plus the system prompt steering the
// model's voice.
type Persona struct {
	ID           int64     `json:"id,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	IsPreset     bool      `json:"is_preset"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Generation is the immutable record of one pipeline run.
type Generation struct {
	ID             int64     `json:"id,omitempty"`
	Topic          string    `json:"topic"`
	PersonaName    string    `json:"persona_name"`
	LLMModel       string    `json:"llm_model"`
	PostType       PostType  `json:"post_type"`
	SearchContext  *string   `json:"search_context,omitempty"`
	PromptUsed     string    `json:"prompt_used"`
	OutputMarkdown string    `json:"output_markdown"`
	OutputHTML     string    `json:"output_html"`
	CreatedAt      time.Time `json:"created_at"`
	Tags           []string  `json:"tags"`
}

// SkillConfig holds the externally persisted per-skill state.
type SkillConfig struct {
	Name    string         `json:"name"`
	Enabled bool           `json:"enabled"`
	Config  map[string]any `json:"config"`
}

// BlogPost is a crawled reference post.
type BlogPost struct {
	PostID    string    `json:"post_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	PubDate   string    `json:"pub_date"`
	Link      string    `json:"link"`
	CrawledAt time.Time `json:"crawled_at,omitempty"`
}
