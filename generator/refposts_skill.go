package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const SkillNameReferencePosts = "reference_posts"

// referencePostsHeading is a load-bearing prompt marker: the history view
// slices prompt_used by this exact string.
const referencePostsHeading = "## 보보쌤 기존 블로그 글 레퍼런스"

const truncationMarker = "\n... (이하 생략)"

// ReferencePostsSkill injects previously crawled posts as style/structure
// references. Category selection falls back in three tiers: exact match,
// bidirectional substring match, then the whole store.
type ReferencePostsSkill struct {
	posts PostLister
}

func NewReferencePostsSkill(posts PostLister) *ReferencePostsSkill {
	return &ReferencePostsSkill{posts: posts}
}

func (s *ReferencePostsSkill) Name() string { return SkillNameReferencePosts }

func (s *ReferencePostsSkill) Description() string {
	return "보보쌤 기존 블로그 글 참조 (실제 글을 컨텍스트로 제공)"
}

// maxLenForCount scales per-post truncation inversely with how many posts
// were selected, bounding total prompt size.
func maxLenForCount(n int) int {
	switch {
	case n <= 3:
		return 3000
	case n <= 10:
		return 2000
	case n <= 20:
		return 1500
	default:
		return 1000
	}
}

func (s *ReferencePostsSkill) Execute(ctx context.Context, sc *SkillContext) (SkillResult, error) {
	if s.posts == nil {
		return SkillResult{
			SkillName: s.Name(),
			Data:      map[string]any{"posts": []any{}},
			Summary:   "(DB 연결 없음 - 레퍼런스 스킵)",
		}, nil
	}

	posts, err := s.selectPosts(sc.Category)
	if err != nil {
		return SkillResult{}, err
	}

	selected := posts
	if sc.RefPostCount > 0 && len(posts) > sc.RefPostCount {
		selected = posts[:sc.RefPostCount]
	}

	if len(selected) == 0 {
		return SkillResult{
			SkillName: s.Name(),
			Data:      map[string]any{"posts": []any{}},
			Summary:   "(저장된 레퍼런스 글이 없습니다)",
		}, nil
	}

	n := len(selected)
	maxLen := maxLenForCount(n)

	parts := []string{fmt.Sprintf(
		"%s\n아래는 보보쌤이 실제로 작성한 블로그 글 %d개입니다. "+
			"이 글들의 문체, 구조, 표현 방식을 참고하여 새 글을 작성하세요.\n",
		referencePostsHeading, n,
	)}

	postData := make([]any, 0, n)
	totalChars := 0
	for i, p := range selected {
		content := p.Content
		originalLen := len([]rune(content))
		if originalLen > maxLen {
			content = truncateRunes(content, maxLen) + truncationMarker
		}

		parts = append(parts, fmt.Sprintf(
			"### 레퍼런스 #%d: %s\n카테고리: %s\n\n%s\n",
			i+1, p.Title, p.Category, content,
		))
		totalChars += len([]rune(content))
		postData = append(postData, map[string]any{
			"title":            p.Title,
			"category":         p.Category,
			"post_id":          p.PostID,
			"content_length":   originalLen,
			"truncated_length": min(originalLen, maxLen),
		})
	}

	return SkillResult{
		SkillName: s.Name(),
		Data: map[string]any{
			"posts":            postData,
			"total_available":  len(posts),
			"selected_count":   n,
			"total_chars":      totalChars,
			"max_len_per_post": maxLen,
			"estimated_tokens": totalChars / 4,
		},
		Summary: strings.Join(parts, "\n---\n"),
	}, nil
}

// selectPosts applies the three-tier category fallback.
func (s *ReferencePostsSkill) selectPosts(category string) ([]BlogPost, error) {
	var posts []BlogPost
	if category != "" {
		exact, err := s.posts.ListBlogPosts(category)
		if err != nil {
			return nil, errors.Wrap(err, "listing posts by category")
		}
		posts = exact
	}

	if len(posts) == 0 && category != "" {
		all, err := s.posts.ListBlogPosts("")
		if err != nil {
			return nil, errors.Wrap(err, "listing posts")
		}
		for _, p := range all {
			if p.Category != "" && (strings.Contains(p.Category, category) || strings.Contains(category, p.Category)) {
				posts = append(posts, p)
			}
		}
	}

	if len(posts) == 0 {
		all, err := s.posts.ListBlogPosts("")
		if err != nil {
			return nil, errors.Wrap(err, "listing posts")
		}
		posts = all
	}
	return posts, nil
}
