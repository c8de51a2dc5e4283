package wire

import (
	"context"
	"testing"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/config"
	"content-factory-ai/internal/domain/entity"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Driver = DriverMemory
	cfg.LLM.DefaultProvider = "openrouter"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"openrouter": {BaseURL: "http://127.0.0.1:0", Model: "deepseek/deepseek-v3.2-exp"},
	}
	return cfg
}

func TestInitializeCoreWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	core, cleanup, err := InitializeCore(ctx, memoryConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if core.Data.Postgres != nil || core.Coordination.Redis != nil {
		t.Fatal("memory configuration should not open external clients")
	}

	p, err := core.Service.Create(ctx, "alice", project.CreateInput{
		Title:        "Manual",
		Type:         entity.ContentTypeArticle,
		ChapterCount: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	chapters, err := core.Service.ListChapters(ctx, "alice", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d", len(chapters))
	}
}

func TestInitializeAppWithMemoryStore(t *testing.T) {
	r, cleanup, err := InitializeApp(context.Background(), memoryConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if r.Engine() == nil {
		t.Fatal("engine is nil")
	}
}

func TestUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Database.Driver = "sqlite"
	if _, _, err := InitializeDataLayer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestServiceOptionsFromConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Features.Generation.ContinueOnChapterFailure = true
	cfg.Storage.R2.Prefix = "books"
	opts := ProvideServiceOptions(cfg)
	if !opts.ContinueOnChapterFailure || opts.ExportPrefix != "books" {
		t.Fatalf("opts = %+v", opts)
	}
}
