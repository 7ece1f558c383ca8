// Package server exposes the generation pipeline and its stores over a
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"auto_naver_blog_generator/crawler"
	"auto_naver_blog_generator/generator"
	"auto_naver_blog_generator/store"
)

const (
	generateTimeout = 120 * time.Second
	crawlTimeout    = 10 * time.Minute
	imageTimeout    = 120 * time.Second
)

type Server struct {
	pipeline *generator.Pipeline
	registry *generator.Registry
	store    *store.Store
	crawler  *crawler.Crawler
	// images is nil when no Gemini credential is configured.
	images *generator.ImageGenerator
}

func New(pipeline *generator.Pipeline, registry *generator.Registry, st *store.Store, cr *crawler.Crawler, images *generator.ImageGenerator) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	return &Server{
		pipeline: pipeline,
		registry: registry,
		store:    st,
		crawler:  cr,
		images:   images,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/generations", s.handleListGenerations).Methods("GET")
	api.HandleFunc("/generations/{id}", s.handleGetGeneration).Methods("GET")

	api.HandleFunc("/personas", s.handleListPersonas).Methods("GET")
	api.HandleFunc("/personas", s.handleCreatePersona).Methods("POST")
	api.HandleFunc("/personas/{name}", s.handleDeletePersona).Methods("DELETE")

	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/skills/{name}/enable", s.handleEnableSkill).Methods("POST")
	api.HandleFunc("/skills/{name}/disable", s.handleDisableSkill).Methods("POST")

	api.HandleFunc("/styles", s.handleListStyles).Methods("GET")
	api.HandleFunc("/styles/{key}", s.handleGetStyle).Methods("GET")
	api.HandleFunc("/styles/{key}", s.handlePutStyle).Methods("PUT")
	api.HandleFunc("/styles/{key}", s.handleDeleteStyle).Methods("DELETE")

	api.HandleFunc("/posts", s.handleListPosts).Methods("GET")
	api.HandleFunc("/posts/categories", s.handlePostCategories).Methods("GET")
	api.HandleFunc("/crawl", s.handleCrawl).Methods("POST")

	api.HandleFunc("/config/{key}", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config/{key}", s.handlePutConfig).Methods("PUT")

	api.HandleFunc("/models", s.handleListModels).Methods("GET")
	api.HandleFunc("/images", s.handleGenerateImages).Methods("POST")

	return logMiddleware(r)
}

// --- Generation ---

type generateRequest struct {
	Topic             string   `json:"topic"`
	Persona           string   `json:"persona"`
	Model             string   `json:"model"`
	PostType          string   `json:"post_type"`
	ExtraInstructions string   `json:"extra_instructions"`
	SkipSearch        bool     `json:"skip_search"`
	Category          string   `json:"category"`
	RefPostCount      *int     `json:"ref_post_count"`
	Tags              []string `json:"tags"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Topic == "" {
		http.Error(w, "topic is required", http.StatusBadRequest)
		return
	}
	postType, err := generator.ParsePostType(req.PostType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	persona, err := s.store.GetPersona(req.Persona)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if persona == nil {
		http.Error(w, "persona not found: "+req.Persona, http.StatusNotFound)
		return
	}

	refPostCount := 3
	if req.RefPostCount != nil {
		refPostCount = *req.RefPostCount
	}

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	gen, err := s.pipeline.Run(ctx, generator.Request{
		Topic:             req.Topic,
		Persona:           *persona,
		Model:             req.Model,
		PostType:          postType,
		ExtraInstructions: req.ExtraInstructions,
		SkipSearch:        req.SkipSearch,
		Category:          req.Category,
		RefPostCount:      refPostCount,
		Tags:              req.Tags,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	saved, err := s.store.SaveGeneration(gen)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, saved)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	gens, err := s.store.ListGenerations(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, gens)
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	gen, err := s.store.GetGeneration(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if gen == nil {
		http.Error(w, "generation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, gen)
}

// --- Personas ---

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.store.ListPersonas()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, personas)
}

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var p generator.Persona
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Name == "" || p.SystemPrompt == "" {
		http.Error(w, "name and system_prompt are required", http.StatusBadRequest)
		return
	}
	p.IsPreset = false
	saved, err := s.store.AddPersona(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusCreated, saved)
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeletePersona(mux.Vars(r)["name"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "persona not found or is a preset", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Skills ---

type skillInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	infos := []skillInfo{}
	for _, skill := range s.registry.All() {
		cfg, err := s.store.GetSkillConfig(skill.Name())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		infos = append(infos, skillInfo{
			Name:        skill.Name(),
			Description: skill.Description(),
			Enabled:     cfg != nil && cfg.Enabled,
		})
	}
	writeJSON(w, infos)
}

func (s *Server) handleEnableSkill(w http.ResponseWriter, r *http.Request) {
	s.setSkillEnabled(w, r, true)
}

func (s *Server) handleDisableSkill(w http.ResponseWriter, r *http.Request) {
	s.setSkillEnabled(w, r, false)
}

func (s *Server) setSkillEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	name := mux.Vars(r)["name"]
	if _, known := s.registry.Get(name); !known {
		http.Error(w, "skill not found: "+name, http.StatusNotFound)
		return
	}
	var err error
	if enabled {
		err = s.registry.Enable(name)
	} else {
		err = s.registry.Disable(name)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"name": name, "enabled": enabled})
}

// --- Styles ---

func (s *Server) handleListStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := s.store.ListBlogStyles()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, styles)
}

func (s *Server) handleGetStyle(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	content, err := s.store.GetBlogStyle(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if content == "" {
		http.Error(w, "style not found: "+key, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"key": key, "content": content})
}

type styleRequest struct {
	Content string `json:"content"`
}

func (s *Server) handlePutStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	key := mux.Vars(r)["key"]
	if err := s.store.SaveBlogStyle(key, req.Content); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"key": key, "content": req.Content})
}

func (s *Server) handleDeleteStyle(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteBlogStyle(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "style not found or protected", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- App config ---

// handleGetConfig reads one app setting (default model, default persona).
// The optional "default" query parameter is returned for unset keys.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, err := s.store.GetConfig(key, r.URL.Query().Get("default"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"key": key, "value": value})
}

type configRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	key := mux.Vars(r)["key"]
	if err := s.store.SetConfig(key, req.Value); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"key": key, "value": req.Value})
}

// --- Reference posts / crawl ---

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListBlogPosts(r.URL.Query().Get("category"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, posts)
}

func (s *Server) handlePostCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.BlogPostCategories()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, categories)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if s.crawler == nil {
		http.Error(w, "crawler not configured (set blog_id)", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), crawlTimeout)
	defer cancel()

	stats, err := s.crawler.Crawl(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, stats)
}

// --- Models / images ---

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{
		"text":  generator.ListModelNames(),
		"image": generator.ListImageModelNames(),
	})
}

type imageRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
	Model string `json:"model"`
}

type imageResponse struct {
	Prompt string `json:"prompt"`
	Data   string `json:"data"`
}

func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		http.Error(w, "image generation not configured (set GEMINI_API_KEY)", http.StatusServiceUnavailable)
		return
	}
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Topic == "" {
		http.Error(w, "topic is required", http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = "Imagen 3"
	}
	if req.Count == 0 {
		req.Count = 2
	}

	ctx, cancel := context.WithTimeout(r.Context(), imageTimeout)
	defer cancel()

	images, err := s.images.GenerateBlogImages(ctx, req.Topic, req.Count, req.Model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, imageResponse{Prompt: img.Prompt, Data: img.Base64()})
	}
	writeJSON(w, out)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONStatus sets the content type before the status line goes out;
// headers added after WriteHeader are dropped.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"duration":   time.Since(start).Round(time.Millisecond),
		}).Info("request handled")
	})
}
