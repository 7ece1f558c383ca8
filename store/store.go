// Package store persists personas, generations, skill flags, style guides
// and crawled reference posts in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"auto_naver_blog_generator/generator"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS personas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    description TEXT NOT NULL,
    system_prompt TEXT NOT NULL,
    is_preset INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS generations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    persona_name TEXT NOT NULL,
    llm_model TEXT NOT NULL,
    post_type TEXT DEFAULT 'general',
    search_context TEXT,
    prompt_used TEXT NOT NULL,
    output_markdown TEXT NOT NULL,
    output_html TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now')),
    tags TEXT DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS skills (
    name TEXT PRIMARY KEY,
    enabled INTEGER DEFAULT 1,
    config TEXT DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS app_config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blog_styles (
    key TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS blog_posts (
    post_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    pub_date TEXT,
    link TEXT,
    crawled_at TEXT DEFAULT (datetime('now'))
);
`

// Store wraps the SQLite database. All methods are safe for use from one
// process; concurrent writers are serialized by SQLite itself.
type Store struct {
	db *sqlx.DB
}

// DefaultDBPath returns ~/.naverblog/naverblog.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return filepath.Join(home, ".naverblog", "naverblog.db"), nil
}

// Open opens or creates the database, configures WAL mode, applies the
// schema and seeds preset personas.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	if err := configure(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "configuring database")
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "applying schema")
	}

	s := &Store{db: db}
	if err := s.seedPresets(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "seeding presets")
	}
	return s, nil
}

func configure(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "executing %s", pragma)
		}
	}

	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return errors.Wrap(err, "querying journal mode")
	}
	if strings.ToLower(journalMode) != "wal" {
		return errors.Errorf("WAL mode not enabled, current mode: %s", journalMode)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// --- Personas ---

type personaRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	SystemPrompt string `db:"system_prompt"`
	IsPreset     bool   `db:"is_preset"`
	CreatedAt    string `db:"created_at"`
}

func (r personaRow) toPersona() generator.Persona {
	return generator.Persona{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		SystemPrompt: r.SystemPrompt,
		IsPreset:     r.IsPreset,
		CreatedAt:    parseTime(r.CreatedAt),
	}
}

// GetPersona returns (nil, nil) when no persona has the name.
func (s *Store) GetPersona(name string) (*generator.Persona, error) {
	var row personaRow
	err := s.db.Get(&row, "SELECT * FROM personas WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying persona")
	}
	p := row.toPersona()
	return &p, nil
}

// ListPersonas returns presets first, then custom personas, by name.
func (s *Store) ListPersonas() ([]generator.Persona, error) {
	var rows []personaRow
	err := s.db.Select(&rows, "SELECT * FROM personas ORDER BY is_preset DESC, name")
	if err != nil {
		return nil, errors.Wrap(err, "listing personas")
	}
	out := make([]generator.Persona, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPersona())
	}
	return out, nil
}

func (s *Store) AddPersona(p generator.Persona) (generator.Persona, error) {
	res, err := s.db.Exec(
		"INSERT INTO personas (name, description, system_prompt, is_preset) VALUES (?, ?, ?, ?)",
		p.Name, p.Description, p.SystemPrompt, p.IsPreset,
	)
	if err != nil {
		return generator.Persona{}, errors.Wrap(err, "inserting persona")
	}
	p.ID, _ = res.LastInsertId()
	return p, nil
}

// DeletePersona removes a custom persona. Presets cannot be deleted.
func (s *Store) DeletePersona(name string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM personas WHERE name = ? AND is_preset = 0", name)
	if err != nil {
		return false, errors.Wrap(err, "deleting persona")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// --- Generations ---

type generationRow struct {
	ID             int64          `db:"id"`
	Topic          string         `db:"topic"`
	PersonaName    string         `db:"persona_name"`
	LLMModel       string         `db:"llm_model"`
	PostType       string         `db:"post_type"`
	SearchContext  sql.NullString `db:"search_context"`
	PromptUsed     string         `db:"prompt_used"`
	OutputMarkdown string         `db:"output_markdown"`
	OutputHTML     string         `db:"output_html"`
	CreatedAt      string         `db:"created_at"`
	Tags           string         `db:"tags"`
}

func (r generationRow) toGeneration() (generator.Generation, error) {
	tags := []string{}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return generator.Generation{}, errors.Wrap(err, "decoding tags")
		}
	}
	g := generator.Generation{
		ID:             r.ID,
		Topic:          r.Topic,
		PersonaName:    r.PersonaName,
		LLMModel:       r.LLMModel,
		PostType:       generator.PostType(r.PostType),
		PromptUsed:     r.PromptUsed,
		OutputMarkdown: r.OutputMarkdown,
		OutputHTML:     r.OutputHTML,
		CreatedAt:      parseTime(r.CreatedAt),
		Tags:           tags,
	}
	if r.SearchContext.Valid {
		sc := r.SearchContext.String
		g.SearchContext = &sc
	}
	return g, nil
}

// SaveGeneration inserts the record and returns it with the assigned id.
func (s *Store) SaveGeneration(g generator.Generation) (generator.Generation, error) {
	tags, err := json.Marshal(g.Tags)
	if err != nil {
		return generator.Generation{}, errors.Wrap(err, "encoding tags")
	}
	var searchContext any
	if g.SearchContext != nil {
		searchContext = *g.SearchContext
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO generations
		 (topic, persona_name, llm_model, post_type, search_context,
		  prompt_used, output_markdown, output_html, created_at, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Topic, g.PersonaName, g.LLMModel, string(g.PostType), searchContext,
		g.PromptUsed, g.OutputMarkdown, g.OutputHTML, formatTime(g.CreatedAt), string(tags),
	)
	if err != nil {
		return generator.Generation{}, errors.Wrap(err, "inserting generation")
	}
	g.ID, _ = res.LastInsertId()
	return g, nil
}

// GetGeneration returns (nil, nil) when the id is unknown.
func (s *Store) GetGeneration(id int64) (*generator.Generation, error) {
	var row generationRow
	err := s.db.Get(&row, "SELECT * FROM generations WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying generation")
	}
	g, err := row.toGeneration()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGenerations returns the newest records first, up to limit.
func (s *Store) ListGenerations(limit int) ([]generator.Generation, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []generationRow
	err := s.db.Select(&rows,
		"SELECT * FROM generations ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing generations")
	}
	out := make([]generator.Generation, 0, len(rows))
	for _, r := range rows {
		g, err := r.toGeneration()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// --- Skill configs ---

type skillRow struct {
	Name    string `db:"name"`
	Enabled bool   `db:"enabled"`
	Config  string `db:"config"`
}

func (r skillRow) toConfig() (generator.SkillConfig, error) {
	cfg := map[string]any{}
	if r.Config != "" {
		if err := json.Unmarshal([]byte(r.Config), &cfg); err != nil {
			return generator.SkillConfig{}, errors.Wrap(err, "decoding skill config")
		}
	}
	return generator.SkillConfig{Name: r.Name, Enabled: r.Enabled, Config: cfg}, nil
}

// GetSkillConfig returns (nil, nil) for an unknown skill name.
func (s *Store) GetSkillConfig(name string) (*generator.SkillConfig, error) {
	var row skillRow
	err := s.db.Get(&row, "SELECT * FROM skills WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying skill config")
	}
	cfg, err := row.toConfig()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveSkillConfig(cfg generator.SkillConfig) error {
	data, err := json.Marshal(cfg.Config)
	if err != nil {
		return errors.Wrap(err, "encoding skill config")
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO skills (name, enabled, config) VALUES (?, ?, ?)",
		cfg.Name, cfg.Enabled, string(data),
	)
	return errors.Wrap(err, "saving skill config")
}

func (s *Store) ListSkillConfigs() ([]generator.SkillConfig, error) {
	var rows []skillRow
	if err := s.db.Select(&rows, "SELECT * FROM skills ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "listing skill configs")
	}
	out := make([]generator.SkillConfig, 0, len(rows))
	for _, r := range rows {
		cfg, err := r.toConfig()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// --- App config ---

func (s *Store) GetConfig(key, defaultValue string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM app_config WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultValue, nil
	}
	if err != nil {
		return "", errors.Wrap(err, "querying app config")
	}
	return value, nil
}

func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO app_config (key, value) VALUES (?, ?)", key, value)
	return errors.Wrap(err, "saving app config")
}

// --- Blog styles ---

// GetBlogStyle returns "" when no style is stored under the key.
func (s *Store) GetBlogStyle(key string) (string, error) {
	var content string
	err := s.db.Get(&content, "SELECT content FROM blog_styles WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "querying blog style")
	}
	return content, nil
}

func (s *Store) SaveBlogStyle(key, content string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO blog_styles (key, content, updated_at) VALUES (?, ?, ?)",
		key, content, formatTime(time.Now()),
	)
	return errors.Wrap(err, "saving blog style")
}

func (s *Store) ListBlogStyles() (map[string]string, error) {
	rows, err := s.db.Queryx("SELECT key, content FROM blog_styles")
	if err != nil {
		return nil, errors.Wrap(err, "listing blog styles")
	}
	defer rows.Close()

	styles := map[string]string{}
	for rows.Next() {
		var key, content string
		if err := rows.Scan(&key, &content); err != nil {
			return nil, errors.Wrap(err, "scanning blog style")
		}
		styles[key] = content
	}
	return styles, rows.Err()
}

// DeleteBlogStyle removes a style guide. The common guide is protected.
func (s *Store) DeleteBlogStyle(key string) (bool, error) {
	if key == "common" {
		return false, nil
	}
	res, err := s.db.Exec("DELETE FROM blog_styles WHERE key = ?", key)
	if err != nil {
		return false, errors.Wrap(err, "deleting blog style")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// --- Blog posts ---

type blogPostRow struct {
	PostID    string         `db:"post_id"`
	Title     string         `db:"title"`
	Category  string         `db:"category"`
	Content   string         `db:"content"`
	PubDate   sql.NullString `db:"pub_date"`
	Link      sql.NullString `db:"link"`
	CrawledAt string         `db:"crawled_at"`
}

func (r blogPostRow) toPost() generator.BlogPost {
	return generator.BlogPost{
		PostID:    r.PostID,
		Title:     r.Title,
		Category:  r.Category,
		Content:   r.Content,
		PubDate:   r.PubDate.String,
		Link:      r.Link.String,
		CrawledAt: parseTime(r.CrawledAt),
	}
}

func (s *Store) SaveBlogPost(p generator.BlogPost) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO blog_posts
		 (post_id, title, category, content, pub_date, link, crawled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.PostID, p.Title, p.Category, p.Content, p.PubDate, p.Link, formatTime(time.Now()),
	)
	return errors.Wrap(err, "saving blog post")
}

// GetBlogPost returns (nil, nil) for an unknown post id.
func (s *Store) GetBlogPost(postID string) (*generator.BlogPost, error) {
	var row blogPostRow
	err := s.db.Get(&row, "SELECT * FROM blog_posts WHERE post_id = ?", postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying blog post")
	}
	p := row.toPost()
	return &p, nil
}

// ListBlogPosts returns posts newest first; an empty category lists all.
func (s *Store) ListBlogPosts(category string) ([]generator.BlogPost, error) {
	var rows []blogPostRow
	var err error
	if category != "" {
		err = s.db.Select(&rows,
			"SELECT * FROM blog_posts WHERE category = ? ORDER BY pub_date DESC", category)
	} else {
		err = s.db.Select(&rows, "SELECT * FROM blog_posts ORDER BY pub_date DESC")
	}
	if err != nil {
		return nil, errors.Wrap(err, "listing blog posts")
	}
	out := make([]generator.BlogPost, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPost())
	}
	return out, nil
}

func (s *Store) CountBlogPosts() (int, error) {
	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM blog_posts"); err != nil {
		return 0, errors.Wrap(err, "counting blog posts")
	}
	return n, nil
}

// BlogPostCategories returns the distinct non-empty categories, sorted.
func (s *Store) BlogPostCategories() ([]string, error) {
	var categories []string
	err := s.db.Select(&categories,
		"SELECT DISTINCT category FROM blog_posts WHERE category != '' ORDER BY category")
	if err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	return categories, nil
}
