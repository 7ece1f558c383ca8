package generator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePosts(n int, category string, contentLen int) []BlogPost {
	posts := make([]BlogPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, BlogPost{
			PostID:   fmt.Sprintf("20000000%02d", i),
			Title:    fmt.Sprintf("글 %d", i+1),
			Category: category,
			Content:  strings.Repeat("가", contentLen),
			PubDate:  fmt.Sprintf("2025-01-%02d", 28-i),
		})
	}
	return posts
}

func TestReferencePostsSelectsExactlyN(t *testing.T) {
	skill := NewReferencePostsSkill(&fakePostLister{posts: makePosts(5, "공부법", 4000)})

	result, err := skill.Execute(context.Background(), &SkillContext{
		Category:     "공부법",
		RefPostCount: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Data["selected_count"])
	assert.Equal(t, 5, result.Data["total_available"])
	assert.Equal(t, 3000, result.Data["max_len_per_post"])

	posts := result.Data["posts"].([]any)
	require.Len(t, posts, 3)
	for _, p := range posts {
		m := p.(map[string]any)
		assert.Equal(t, 4000, m["content_length"])
		assert.Equal(t, 3000, m["truncated_length"])
	}

	// 3 truncated posts plus the marker runes each.
	markerLen := len([]rune(truncationMarker))
	wantChars := 3 * (3000 + markerLen)
	assert.Equal(t, wantChars, result.Data["total_chars"])
	assert.Equal(t, wantChars/4, result.Data["estimated_tokens"])
}

func TestReferencePostsTruncationBanding(t *testing.T) {
	tests := []struct {
		count   int
		wantLen int
	}{
		{1, 3000},
		{3, 3000},
		{4, 2000},
		{10, 2000},
		{11, 1500},
		{20, 1500},
		{21, 1000},
		{40, 1000},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("count_%d", tt.count), func(t *testing.T) {
			skill := NewReferencePostsSkill(&fakePostLister{posts: makePosts(tt.count, "수능", 5000)})

			result, err := skill.Execute(context.Background(), &SkillContext{
				Category:     "수능",
				RefPostCount: tt.count,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, result.Data["max_len_per_post"])
		})
	}
}

func TestReferencePostsZeroCountTakesAll(t *testing.T) {
	skill := NewReferencePostsSkill(&fakePostLister{posts: makePosts(7, "수학", 100)})

	result, err := skill.Execute(context.Background(), &SkillContext{
		Category:     "수학",
		RefPostCount: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, result.Data["selected_count"])
}

func TestReferencePostsShortContentNotTruncated(t *testing.T) {
	skill := NewReferencePostsSkill(&fakePostLister{posts: makePosts(2, "국어", 500)})

	result, err := skill.Execute(context.Background(), &SkillContext{
		Category:     "국어",
		RefPostCount: 2,
	})
	require.NoError(t, err)

	assert.NotContains(t, result.Summary, "(이하 생략)")
	assert.Equal(t, 1000, result.Data["total_chars"])
	assert.Equal(t, 250, result.Data["estimated_tokens"])
	for _, p := range result.Data["posts"].([]any) {
		m := p.(map[string]any)
		assert.Equal(t, 500, m["content_length"])
		assert.Equal(t, 500, m["truncated_length"])
	}
}

func TestReferencePostsCategoryFallback(t *testing.T) {
	store := &fakePostLister{posts: []BlogPost{
		{PostID: "1", Title: "수능 국어 공부법", Category: "수능 국어", Content: "내용 하나"},
		{PostID: "2", Title: "영어 단어 암기", Category: "수능 영어", Content: "내용 둘"},
	}}
	skill := NewReferencePostsSkill(store)

	// No exact match for "국어", but "수능 국어" embeds it.
	result, err := skill.Execute(context.Background(), &SkillContext{
		Category:     "국어",
		RefPostCount: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Data["selected_count"])
	assert.Contains(t, result.Summary, "수능 국어 공부법")

	// No match at all falls back to the whole store.
	result, err = skill.Execute(context.Background(), &SkillContext{
		Category:     "요리",
		RefPostCount: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Data["selected_count"])
}

func TestReferencePostsEmptyStoreDegrades(t *testing.T) {
	skill := NewReferencePostsSkill(&fakePostLister{})

	result, err := skill.Execute(context.Background(), &SkillContext{Category: "공부법", RefPostCount: 3})
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "레퍼런스 글이 없습니다")
	assert.Empty(t, result.Data["posts"])
}

func TestReferencePostsSummaryFormat(t *testing.T) {
	skill := NewReferencePostsSkill(&fakePostLister{posts: makePosts(5, "공부법", 200)})

	result, err := skill.Execute(context.Background(), &SkillContext{
		Category:     "공부법",
		RefPostCount: 3,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Summary, "## 보보쌤 기존 블로그 글 레퍼런스"))
	assert.Contains(t, result.Summary, "블로그 글 3개입니다")
	for i := 1; i <= 3; i++ {
		assert.Contains(t, result.Summary, fmt.Sprintf("### 레퍼런스 #%d: 글 %d", i, i))
	}
	assert.NotContains(t, result.Summary, "### 레퍼런스 #4")
	assert.Contains(t, result.Summary, "카테고리: 공부법")
}
