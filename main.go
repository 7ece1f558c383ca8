package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"auto_naver_blog_generator/config"
	"auto_naver_blog_generator/crawler"
	"auto_naver_blog_generator/generator"
	"auto_naver_blog_generator/server"
	"auto_naver_blog_generator/store"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to config.json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	crawl := flag.Bool("crawl", false, "crawl the blog RSS feed into the reference store")
	topic := flag.String("topic", "", "generate one post for this topic and print the markdown")
	personaName := flag.String("persona", "고3 수험생", "persona name for one-shot generation")
	model := flag.String("model", "Claude Sonnet", "model display name or provider/model-id")
	postType := flag.String("type", "general", "post type: general, review or listicle")
	category := flag.String("category", "", "blog category for reference-post selection")
	refPosts := flag.Int("refs", 3, "reference post count (0 = all)")
	extra := flag.String("extra", "", "extra instructions")
	skipSearch := flag.Bool("skip-search", false, "skip the web search skill")
	mock := flag.Bool("mock", false, "use the mock LLM instead of real providers")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			fatal(err)
		}
	}

	ctx := context.Background()
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	registry, err := generator.NewRegistry(st)
	if err != nil {
		fatal(err)
	}
	deps := generator.SkillDeps{Posts: st, Styles: st, TavilyAPIKey: cfg.TavilyAPIKey}
	if err := registry.Discover(deps); err != nil {
		fatal(err)
	}

	llm, err := buildLLM(ctx, cfg, *mock)
	if err != nil {
		fatal(err)
	}
	pipeline, err := generator.NewPipeline(llm, registry)
	if err != nil {
		fatal(err)
	}

	var cr *crawler.Crawler
	if cfg.BlogID != "" {
		cr, err = crawler.New(cfg.BlogID, st)
		if err != nil {
			fatal(err)
		}
	}

	switch {
	case *crawl:
		if cr == nil {
			fatal(fmt.Errorf("crawl requires blog_id in config"))
		}
		stats, err := cr.Crawl(ctx)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("success: %d, skip: %d, fail: %d\n", stats.Success, stats.Skip, stats.Fail)

	case *serve:
		var images *generator.ImageGenerator
		if key := cfg.GeminiAPIKey(); key != "" {
			images, err = generator.NewImageGenerator(ctx, key)
			if err != nil {
				fatal(err)
			}
		}
		srv, err := server.New(pipeline, registry, st, cr, images)
		if err != nil {
			fatal(err)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if listen == "" {
			listen = ":8080"
		}
		log.WithField("addr", listen).Info("starting web server")
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fatal(err)
		}

	case *topic != "":
		pt, err := generator.ParsePostType(*postType)
		if err != nil {
			fatal(err)
		}
		persona, err := st.GetPersona(*personaName)
		if err != nil {
			fatal(err)
		}
		if persona == nil {
			fatal(fmt.Errorf("persona %q not found", *personaName))
		}
		gen, err := pipeline.Run(ctx, generator.Request{
			Topic:             *topic,
			Persona:           *persona,
			Model:             *model,
			PostType:          pt,
			ExtraInstructions: *extra,
			SkipSearch:        *skipSearch,
			Category:          *category,
			RefPostCount:      *refPosts,
		})
		if err != nil {
			fatal(err)
		}
		saved, err := st.SaveGeneration(gen)
		if err != nil {
			fatal(err)
		}
		log.WithField("id", saved.ID).Info("generation saved")
		fmt.Println(saved.OutputMarkdown)

	default:
		fmt.Fprintln(os.Stderr, "nothing to do: pass --serve, --crawl or --topic (see --help)")
		os.Exit(1)
	}
}

// buildLLM wires every provider with a configured credential into the
// router. Models resolve to providers at call time.
func buildLLM(ctx context.Context, cfg config.Config, mock bool) (generator.LLMClient, error) {
	if mock {
		return generator.MockLLM{}, nil
	}

	router := generator.NewLLMRouter()
	if cfg.OpenAI != nil && cfg.OpenAI.APIKey != "" {
		client, err := generator.NewOpenAILLM(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, err
		}
		router.WithProvider(generator.ProviderOpenAI, client)
	}
	if cfg.Anthropic != nil && cfg.Anthropic.APIKey != "" {
		client, err := generator.NewAnthropicLLM(cfg.Anthropic.APIKey)
		if err != nil {
			return nil, err
		}
		router.WithProvider(generator.ProviderAnthropic, client)
	}
	if key := cfg.GeminiAPIKey(); key != "" {
		client, err := generator.NewGeminiLLM(ctx, key)
		if err != nil {
			return nil, err
		}
		router.WithProvider(generator.ProviderGemini, client)
	}

	if len(router.Providers()) == 0 {
		return nil, fmt.Errorf("no LLM provider configured; set one of %s or pass --mock",
			strings.Join([]string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"}, ", "))
	}
	return router, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
