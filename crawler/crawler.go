// Package crawler populates the reference-post store from a Naver blog's
// RSS feed.
package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"auto_naver_blog_generator/generator"
)

const (
	rssURLFormat      = "https://rss.blog.naver.com/%s.xml"
	postViewURLFormat = "https://blog.naver.com/PostView.naver?blogId=%s&logNo=%s&directAccess=false"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Posts shorter than this after extraction fall back to the RSS
	// description.
	minContentLen = 50
	minDescLen    = 20
)

// PostStore is the slice of the store the crawler writes into.
type PostStore interface {
	GetBlogPost(postID string) (*generator.BlogPost, error)
	SaveBlogPost(p generator.BlogPost) error
}

// Stats summarizes one crawl run.
type Stats struct {
	Success int `json:"success"`
	Skip    int `json:"skip"`
	Fail    int `json:"fail"`
}

// Crawler fetches the blog RSS feed and each new post's body.
type Crawler struct {
	blogID string
	store  PostStore
	client *http.Client
	conv   *md.Converter
	// delay between post fetches, to stay polite with the blog host.
	delay time.Duration

	rssURL         string
	postViewFormat string
}

func New(blogID string, store PostStore) (*Crawler, error) {
	if blogID == "" {
		return nil, errors.New("blog id is required")
	}
	if store == nil {
		return nil, errors.New("post store is required")
	}
	return &Crawler{
		blogID:         blogID,
		store:          store,
		client:         &http.Client{Timeout: 15 * time.Second},
		conv:           md.NewConverter("", true, nil),
		delay:          500 * time.Millisecond,
		rssURL:         fmt.Sprintf(rssURLFormat, blogID),
		postViewFormat: postViewURLFormat,
	}, nil
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Category    string `xml:"category"`
}

var postIDPattern = regexp.MustCompile(`/(\d{10,})`)

// Crawl fetches the feed and stores every post not yet in the store.
func (c *Crawler) Crawl(ctx context.Context) (Stats, error) {
	logger := log.WithField("blog_id", c.blogID)
	logger.Info("fetching RSS feed")

	rssXML, err := c.fetch(ctx, c.rssURL)
	if err != nil {
		return Stats{}, errors.Wrap(err, "fetching RSS feed")
	}

	items, err := parseRSS(rssXML)
	if err != nil {
		return Stats{}, errors.Wrap(err, "parsing RSS feed")
	}
	logger.WithField("posts", len(items)).Info("RSS feed parsed")

	var stats Stats
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		postID := extractPostID(item.Link)
		if postID == "" {
			stats.Fail++
			continue
		}

		existing, err := c.store.GetBlogPost(postID)
		if err != nil {
			return stats, errors.Wrapf(err, "checking post %s", postID)
		}
		if existing != nil {
			stats.Skip++
			continue
		}

		logger.WithFields(log.Fields{
			"progress": fmt.Sprintf("%d/%d", i+1, len(items)),
			"title":    truncateTitle(item.Title),
		}).Info("crawling post")

		content := c.fetchPostContent(ctx, postID)
		switch {
		case len([]rune(content)) >= minContentLen:
			// keep extracted body
		case len([]rune(item.Description)) > minDescLen:
			content = item.Description
		default:
			stats.Fail++
			continue
		}

		err = c.store.SaveBlogPost(generator.BlogPost{
			PostID:   postID,
			Title:    item.Title,
			Category: item.Category,
			Content:  content,
			PubDate:  item.PubDate,
			Link:     item.Link,
		})
		if err != nil {
			return stats, errors.Wrapf(err, "saving post %s", postID)
		}
		stats.Success++

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(c.delay):
		}
	}

	logger.WithFields(log.Fields{
		"success": stats.Success,
		"skip":    stats.Skip,
		"fail":    stats.Fail,
	}).Info("crawl finished")
	return stats, nil
}

func (c *Crawler) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading body")
	}
	return string(body), nil
}

func parseRSS(rssXML string) ([]rssItem, error) {
	var feed rssFeed
	if err := xml.Unmarshal([]byte(rssXML), &feed); err != nil {
		return nil, err
	}
	items := feed.Channel.Items
	for i := range items {
		items[i].Title = strings.TrimSpace(items[i].Title)
		items[i].Link = strings.TrimSpace(items[i].Link)
		items[i].Description = strings.TrimSpace(items[i].Description)
		items[i].PubDate = strings.TrimSpace(items[i].PubDate)
		items[i].Category = strings.TrimSpace(items[i].Category)
	}
	return items, nil
}

func extractPostID(link string) string {
	m := postIDPattern.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

var (
	seParagraphPattern = regexp.MustCompile(`(?s)<p[^>]*class="[^"]*se-text-paragraph[^"]*"[^>]*>(.*?)</p>`)
	postViewPattern    = regexp.MustCompile(`(?s)<div[^>]*id="postViewArea"[^>]*>(.*?)<!-- // -->`)
	bodyPattern        = regexp.MustCompile(`(?s)<body[^>]*>(.*)</body>`)
)

// fetchPostContent pulls the post view page and extracts the SmartEditor
// body. Extraction failures return "" so the caller can fall back to the
// RSS description.
func (c *Crawler) fetchPostContent(ctx context.Context, postID string) string {
	url := fmt.Sprintf(c.postViewFormat, c.blogID, postID)
	html, err := c.fetch(ctx, url)
	if err != nil {
		log.WithError(err).WithField("post_id", postID).Warn("post fetch failed")
		return ""
	}
	return c.extractContent(html)
}

func (c *Crawler) extractContent(html string) string {
	if idx := strings.Index(html, `<div class="se-main-container">`); idx >= 0 {
		region := html[idx:]
		if len(region) > 200000 {
			region = region[:200000]
		}

		if paragraphs := seParagraphPattern.FindAllStringSubmatch(region, -1); len(paragraphs) > 0 {
			var texts []string
			for _, p := range paragraphs {
				if text := c.htmlToText(p[1]); text != "" {
					texts = append(texts, text)
				}
			}
			return strings.Join(texts, "\n")
		}

		if end := strings.Index(region, "<!-- SE_DOC_FOOTER"); end > 0 {
			return c.htmlToText(region[:end])
		}
		if len(region) > 100000 {
			region = region[:100000]
		}
		return c.htmlToText(region)
	}

	if m := postViewPattern.FindStringSubmatch(html); len(m) >= 2 {
		return c.htmlToText(m[1])
	}

	if m := bodyPattern.FindStringSubmatch(html); len(m) >= 2 {
		text := c.htmlToText(m[1])
		if len([]rune(text)) > 200 {
			runes := []rune(text)
			if len(runes) > 8000 {
				runes = runes[:8000]
			}
			return string(runes)
		}
	}
	return ""
}

// htmlToText converts an HTML fragment to markdown-ish plain text.
func (c *Crawler) htmlToText(fragment string) string {
	text, err := c.conv.ConvertString(fragment)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 30 {
		return title
	}
	return string(runes[:30]) + "..."
}
