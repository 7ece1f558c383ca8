package generator

import (
	"context"
	"sync"
)

// fakeFlagStore is an in-memory SkillFlagStore.
type fakeFlagStore struct {
	mu    sync.Mutex
	flags map[string]SkillConfig
	saves int
}

func newFakeFlagStore() *fakeFlagStore {
	return &fakeFlagStore{flags: map[string]SkillConfig{}}
}

func (f *fakeFlagStore) GetSkillConfig(name string) (*SkillConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.flags[name]
	if !ok {
		return nil, nil
	}
	copied := cfg
	return &copied, nil
}

func (f *fakeFlagStore) SaveSkillConfig(cfg SkillConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[cfg.Name] = cfg
	f.saves++
	return nil
}

// fakePostLister serves a fixed post slice, filtering by exact category.
type fakePostLister struct {
	posts []BlogPost
}

func (f *fakePostLister) ListBlogPosts(category string) ([]BlogPost, error) {
	if category == "" {
		return f.posts, nil
	}
	var out []BlogPost
	for _, p := range f.posts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeStyleReader serves styles from a map.
type fakeStyleReader struct {
	styles map[string]string
}

func (f *fakeStyleReader) GetBlogStyle(key string) (string, error) {
	return f.styles[key], nil
}

// stubSkill is a minimal skill for registry/pipeline tests.
type stubSkill struct {
	name    string
	summary string
	raw     map[string]any
	execute func(ctx context.Context, sc *SkillContext) (SkillResult, error)
}

func (s *stubSkill) Name() string        { return s.name }
func (s *stubSkill) Description() string { return "stub: " + s.name }

func (s *stubSkill) Execute(ctx context.Context, sc *SkillContext) (SkillResult, error) {
	if s.execute != nil {
		return s.execute(ctx, sc)
	}
	return SkillResult{
		SkillName: s.name,
		Data:      map[string]any{},
		Summary:   s.summary,
		Raw:       s.raw,
	}, nil
}

// recordingLLM captures the prompts it was called with.
type recordingLLM struct {
	model  string
	system string
	user   string
	output string
	err    error
}

func (r *recordingLLM) Generate(_ context.Context, model, systemPrompt, userPrompt string) (string, error) {
	r.model = model
	r.system = systemPrompt
	r.user = userPrompt
	if r.err != nil {
		return "", r.err
	}
	if r.output == "" {
		return "# 제목\n\n본문입니다.", nil
	}
	return r.output, nil
}
