package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	SkillNameSearch = "search"

	tavilyEndpoint   = "https://api.tavily.com/search"
	searchMaxResults = 5
	// Excerpt cap per result entering the prompt.
	searchExcerptLen = 300
)

// SearchSkill gathers fresh web context for the topic through the Tavily
// search API. A missing credential degrades to a skipped-search summary
// instead of failing the pipeline.
type SearchSkill struct {
	// APIKey overrides the TAVILY_API_KEY environment variable when set.
	APIKey string
	// BaseURL overrides the Tavily endpoint (tests point it at a stub).
	BaseURL string
	Client  *http.Client
}

func NewSearchSkill() *SearchSkill {
	return &SearchSkill{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SearchSkill) Name() string { return SkillNameSearch }

func (s *SearchSkill) Description() string {
	return "Tavily API를 사용한 웹 검색 (최신 정보 수집)"
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	Topic         string `json:"topic"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

func (s *SearchSkill) Execute(ctx context.Context, sc *SkillContext) (SkillResult, error) {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if apiKey == "" {
		return SkillResult{
			SkillName: s.Name(),
			Data:      map[string]any{"results": []any{}},
			Summary:   "[검색 스킵: TAVILY_API_KEY가 설정되지 않았습니다]",
		}, nil
	}

	resp, raw, err := s.search(ctx, apiKey, sc.Topic)
	if err != nil {
		return SkillResult{}, errors.Wrap(err, "tavily search")
	}

	var parts []string
	if resp.Answer != "" {
		parts = append(parts, fmt.Sprintf("## 검색 요약\n%s\n", resp.Answer))
	}
	parts = append(parts, "## 참고 자료")
	for i, r := range resp.Results {
		content := truncateRunes(r.Content, searchExcerptLen)
		parts = append(parts, fmt.Sprintf("%d. **%s** (출처: %s)\n   %s", i+1, r.Title, r.URL, content))
	}

	results := make([]any, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"content": r.Content,
		})
	}

	return SkillResult{
		SkillName: s.Name(),
		Data:      map[string]any{"results": results, "answer": resp.Answer},
		Summary:   strings.Join(parts, "\n\n"),
		Raw:       raw,
	}, nil
}

// search issues the single Tavily query and keeps the undecoded response
// body around for the raw record.
func (s *SearchSkill) search(ctx context.Context, apiKey, query string) (tavilyResponse, map[string]any, error) {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = tavilyEndpoint
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        apiKey,
		Query:         query,
		SearchDepth:   "advanced",
		Topic:         "general",
		MaxResults:    searchMaxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return tavilyResponse{}, nil, errors.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return tavilyResponse{}, nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(req)
	if err != nil {
		return tavilyResponse{}, nil, err
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return tavilyResponse{}, nil, errors.Wrap(err, "reading response")
	}
	if httpResp.StatusCode != http.StatusOK {
		return tavilyResponse{}, nil, errors.Errorf("tavily returned %d: %s", httpResp.StatusCode, string(payload))
	}

	var resp tavilyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return tavilyResponse{}, nil, errors.Wrap(err, "decoding response")
	}
	raw := map[string]any{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return tavilyResponse{}, nil, errors.Wrap(err, "decoding raw response")
	}
	return resp, raw, nil
}

// truncateRunes cuts s to at most n runes. Korean text makes byte slicing
// unsafe here.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
