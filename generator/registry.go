package generator

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SkillFlagStore persists per-skill enabled flags across restarts.
// GetSkillConfig returns (nil, nil) for an unknown skill name.
type SkillFlagStore interface {
	GetSkillConfig(name string) (*SkillConfig, error)
	SaveSkillConfig(cfg SkillConfig) error
}

// PostLister is the slice of the store the reference-posts skill consumes.
// An empty category lists the whole store, newest first.
type PostLister interface {
	ListBlogPosts(category string) ([]BlogPost, error)
}

// StyleReader is the slice of the store the style skill consumes.
// GetBlogStyle returns "" when no guide is stored under the key.
type StyleReader interface {
	GetBlogStyle(key string) (string, error)
}

// SkillDeps carries the collaborators skill constructors may need.
type SkillDeps struct {
	Posts  PostLister
	Styles StyleReader
	// TavilyAPIKey is the config-sourced search credential. Empty falls
	// back to the TAVILY_API_KEY environment variable.
	TavilyAPIKey string
}

// defaultSkills is the explicit registration list, replacing runtime
// namespace scanning. Order here is execution order.
var defaultSkills = []func(SkillDeps) Skill{
	func(d SkillDeps) Skill {
		s := NewSearchSkill()
		s.APIKey = d.TavilyAPIKey
		return s
	},
	func(d SkillDeps) Skill { return NewReferencePostsSkill(d.Posts) },
	func(d SkillDeps) Skill { return NewStyleSkill(d.Styles) },
}

// Registry owns the named set of skills and their persisted flags, and
// presents the enabled subset in registration order.
type Registry struct {
	flags  SkillFlagStore
	skills map[string]Skill
	order  []string
}

func NewRegistry(flags SkillFlagStore) (*Registry, error) {
	if flags == nil {
		return nil, errors.New("skill flag store is required")
	}
	return &Registry{
		flags:  flags,
		skills: make(map[string]Skill),
	}, nil
}

// Discover builds every default skill and registers it. A failing candidate
// does not abort the others. Re-running it neither duplicates entries nor
// resets flags already known to the store.
func (r *Registry) Discover(deps SkillDeps) error {
	var errs *multierror.Error
	for _, construct := range defaultSkills {
		skill := construct(deps)
		if err := r.Register(skill); err != nil {
			log.WithError(err).WithField("skill", skill.Name()).Warn("skill registration failed")
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Register adds or replaces the in-memory instance for skill.Name(). On the
// first sighting of a name the enabled=true default is persisted; flags of
// skills the store already knows are left alone.
func (r *Registry) Register(skill Skill) error {
	name := skill.Name()
	if _, known := r.skills[name]; !known {
		r.order = append(r.order, name)
	}
	r.skills[name] = skill

	cfg, err := r.flags.GetSkillConfig(name)
	if err != nil {
		return errors.Wrapf(err, "reading flag for skill %s", name)
	}
	if cfg == nil {
		if err := r.flags.SaveSkillConfig(SkillConfig{Name: name, Enabled: true, Config: map[string]any{}}); err != nil {
			return errors.Wrapf(err, "persisting default flag for skill %s", name)
		}
	}
	return nil
}

// Enabled returns, in registration order, the skills whose persisted flag is
// true. Flags are re-read from the store on every call so concurrent callers
// always see fresh state.
func (r *Registry) Enabled() ([]Skill, error) {
	var enabled []Skill
	for _, name := range r.order {
		cfg, err := r.flags.GetSkillConfig(name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading flag for skill %s", name)
		}
		if cfg != nil && cfg.Enabled {
			enabled = append(enabled, r.skills[name])
		}
	}
	return enabled, nil
}

// Enable flips the persisted flag on. Unknown names are a no-op.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable flips the persisted flag off. Unknown names are a no-op.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	cfg, err := r.flags.GetSkillConfig(name)
	if err != nil {
		return errors.Wrapf(err, "reading flag for skill %s", name)
	}
	if cfg == nil {
		return nil
	}
	cfg.Enabled = enabled
	return errors.Wrapf(r.flags.SaveSkillConfig(*cfg), "saving flag for skill %s", name)
}

// Get looks up a skill by name.
func (r *Registry) Get(name string) (Skill, bool) {
	s, ok := r.skills[name]
	return s, ok
}

// All returns every registered skill in registration order.
func (r *Registry) All() []Skill {
	out := make([]Skill, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.skills[name])
	}
	return out
}
