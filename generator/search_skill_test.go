package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSkillMissingKeyDegrades(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	skill := NewSearchSkill()

	result, err := skill.Execute(context.Background(), &SkillContext{Topic: "수능 국어"})
	require.NoError(t, err, "missing credential must not raise")

	assert.Equal(t, SkillNameSearch, result.SkillName)
	assert.Contains(t, result.Summary, "검색 스킵")
	assert.Contains(t, result.Summary, "TAVILY_API_KEY")
	assert.Empty(t, result.Data["results"])
	assert.Nil(t, result.Raw)
}

func newTavilyStub(t *testing.T, answer string, results []map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "advanced", req["search_depth"])
		assert.Equal(t, float64(5), req["max_results"])
		assert.Equal(t, true, req["include_answer"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"answer":  answer,
			"results": results,
		})
	}))
}

func TestSearchSkillFormatsSummary(t *testing.T) {
	longContent := strings.Repeat("내", 400)
	srv := newTavilyStub(t, "요약된 답변입니다.", []map[string]string{
		{"title": "첫 번째 자료", "url": "https://example.com/1", "content": longContent},
		{"title": "두 번째 자료", "url": "https://example.com/2", "content": "짧은 내용"},
	})
	defer srv.Close()

	skill := &SearchSkill{APIKey: "tvly-test", BaseURL: srv.URL}
	result, err := skill.Execute(context.Background(), &SkillContext{Topic: "독학재수 공부법"})
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "## 검색 요약\n요약된 답변입니다.")
	assert.Contains(t, result.Summary, "## 참고 자료")
	assert.Contains(t, result.Summary, "1. **첫 번째 자료** (출처: https://example.com/1)")
	assert.Contains(t, result.Summary, "2. **두 번째 자료** (출처: https://example.com/2)")

	// Excerpts are capped at 300 runes.
	assert.Contains(t, result.Summary, strings.Repeat("내", 300))
	assert.NotContains(t, result.Summary, strings.Repeat("내", 301))

	require.Len(t, result.Data["results"], 2)
	assert.Equal(t, "요약된 답변입니다.", result.Data["answer"])
	assert.Contains(t, result.Raw, "results")
}

func TestSearchSkillNoAnswerOmitsAnswerHeading(t *testing.T) {
	srv := newTavilyStub(t, "", []map[string]string{
		{"title": "자료", "url": "https://example.com", "content": "내용"},
	})
	defer srv.Close()

	skill := &SearchSkill{APIKey: "tvly-test", BaseURL: srv.URL}
	result, err := skill.Execute(context.Background(), &SkillContext{Topic: "주제"})
	require.NoError(t, err)

	assert.NotContains(t, result.Summary, "## 검색 요약")
	assert.True(t, strings.HasPrefix(result.Summary, "## 참고 자료"))
}

func TestSearchSkillUpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	skill := &SearchSkill{APIKey: "tvly-test", BaseURL: srv.URL}
	_, err := skill.Execute(context.Background(), &SkillContext{Topic: "주제"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
