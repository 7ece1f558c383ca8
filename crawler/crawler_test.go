package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_naver_blog_generator/generator"
)

type memPostStore struct {
	posts map[string]generator.BlogPost
}

func newMemPostStore() *memPostStore {
	return &memPostStore{posts: map[string]generator.BlogPost{}}
}

func (m *memPostStore) GetBlogPost(postID string) (*generator.BlogPost, error) {
	p, ok := m.posts[postID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPostStore) SaveBlogPost(p generator.BlogPost) error {
	m.posts[p.PostID] = p
	return nil
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>보보쌤의 블로그</title>
    <item>
      <title> 수능 국어 비문학 공부법 </title>
      <link>https://blog.naver.com/bobo/2230000001</link>
      <description>비문학을 잡는 세 가지 원칙을 소개합니다.</description>
      <pubDate>Mon, 10 Feb 2025 09:00:00 +0900</pubDate>
      <category>수능 국어</category>
    </item>
    <item>
      <title>재수 멘탈 관리</title>
      <link>https://blog.naver.com/bobo/2230000002</link>
      <description>짧은 설명</description>
      <pubDate>Tue, 11 Feb 2025 09:00:00 +0900</pubDate>
      <category>멘탈 관리</category>
    </item>
  </channel>
</rss>`

func TestParseRSS(t *testing.T) {
	items, err := parseRSS(sampleRSS)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "수능 국어 비문학 공부법", items[0].Title, "fields are trimmed")
	assert.Equal(t, "https://blog.naver.com/bobo/2230000001", items[0].Link)
	assert.Equal(t, "수능 국어", items[0].Category)
	assert.Equal(t, "멘탈 관리", items[1].Category)
}

func TestParseRSSInvalid(t *testing.T) {
	_, err := parseRSS("not xml at all <<<")
	require.Error(t, err)
}

func TestExtractPostID(t *testing.T) {
	cases := map[string]string{
		"https://blog.naver.com/bobo/2230000001":            "2230000001",
		"https://blog.naver.com/PostView.naver?logNo=12345": "",
		"https://blog.naver.com/bobo":                       "",
	}
	for link, want := range cases {
		assert.Equal(t, want, extractPostID(link), link)
	}
}

func newTestCrawler(t *testing.T, store PostStore) *Crawler {
	t.Helper()
	c, err := New("bobo", store)
	require.NoError(t, err)
	c.delay = 0
	return c
}

func TestExtractContentSmartEditor(t *testing.T) {
	html := `<html><body>
<div class="se-main-container">
  <p class="se-text-paragraph">첫 번째 문단입니다.</p>
  <p class="se-text-paragraph align-left">두 번째 <b>강조</b> 문단입니다.</p>
  <p class="other">무시되는 문단</p>
</div>
</body></html>`

	c := newTestCrawler(t, newMemPostStore())
	got := c.extractContent(html)

	assert.Contains(t, got, "첫 번째 문단입니다.")
	assert.Contains(t, got, "두 번째 **강조** 문단입니다.")
	assert.NotContains(t, got, "무시되는 문단")
}

func TestExtractContentPostViewFallback(t *testing.T) {
	html := `<html><body>
<div id="postViewArea">옛날 에디터 본문입니다.</div><!-- // -->
</body></html>`

	c := newTestCrawler(t, newMemPostStore())
	assert.Equal(t, "옛날 에디터 본문입니다.", c.extractContent(html))
}

func TestExtractContentBodyFallback(t *testing.T) {
	long := strings.Repeat("본문 내용입니다. ", 50)
	html := "<html><body><div>" + long + "</div></body></html>"

	c := newTestCrawler(t, newMemPostStore())
	got := c.extractContent(html)
	assert.Contains(t, got, "본문 내용입니다.")

	// Short bodies are rejected so the RSS description can take over.
	assert.Empty(t, c.extractContent("<html><body><div>짧음</div></body></html>"))
}

func TestCrawlStoresNewPosts(t *testing.T) {
	postBody := `<html><body><div class="se-main-container">
<p class="se-text-paragraph">` + strings.Repeat("비문학 공부법 본문입니다. ", 10) + `</p>
</div></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rss":
			fmt.Fprint(w, sampleRSS)
		case strings.HasPrefix(r.URL.Path, "/post/"):
			fmt.Fprint(w, postBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := newMemPostStore()
	c := newTestCrawler(t, store)
	c.rssURL = srv.URL + "/rss"
	c.postViewFormat = srv.URL + "/post/%s/%s"

	stats, err := c.Crawl(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Success: 2}, stats)

	p, err := store.GetBlogPost("2230000001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "수능 국어 비문학 공부법", p.Title)
	assert.Equal(t, "수능 국어", p.Category)
	assert.Contains(t, p.Content, "비문학 공부법 본문입니다.")
	assert.Equal(t, "https://blog.naver.com/bobo/2230000001", p.Link)
}

func TestCrawlSkipsExistingPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rss" {
			fmt.Fprint(w, sampleRSS)
			return
		}
		fmt.Fprint(w, `<html><body><div class="se-main-container"><p class="se-text-paragraph">`+
			strings.Repeat("본문. ", 30)+`</p></div></body></html>`)
	}))
	defer srv.Close()

	store := newMemPostStore()
	store.posts["2230000001"] = generator.BlogPost{PostID: "2230000001", Title: "이미 있음"}

	c := newTestCrawler(t, store)
	c.rssURL = srv.URL + "/rss"
	c.postViewFormat = srv.URL + "/post/%s/%s"

	stats, err := c.Crawl(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Success: 1, Skip: 1}, stats)
	assert.Equal(t, "이미 있음", store.posts["2230000001"].Title)
}

func TestCrawlFallsBackToDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rss" {
			fmt.Fprint(w, sampleRSS)
			return
		}
		// Too short to pass extraction.
		fmt.Fprint(w, "<html><body><div>짧음</div></body></html>")
	}))
	defer srv.Close()

	store := newMemPostStore()
	c := newTestCrawler(t, store)
	c.rssURL = srv.URL + "/rss"
	c.postViewFormat = srv.URL + "/post/%s/%s"

	stats, err := c.Crawl(context.Background())
	require.NoError(t, err)

	// First item's description is long enough; the second one is not.
	assert.Equal(t, Stats{Success: 1, Fail: 1}, stats)
	p, err := store.GetBlogPost("2230000001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "비문학을 잡는 세 가지 원칙을 소개합니다.", p.Content)
}

func TestCrawlRSSFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestCrawler(t, newMemPostStore())
	c.rssURL = srv.URL + "/rss"

	_, err := c.Crawl(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching RSS feed")
}

func TestNewValidation(t *testing.T) {
	_, err := New("", newMemPostStore())
	assert.Error(t, err)

	_, err = New("bobo", nil)
	assert.Error(t, err)
}
