package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"content-factory-ai/internal/application/generation"
	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/config"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/infrastructure/persistence/memory"
	"content-factory-ai/internal/wire"
	"content-factory-ai/internal/workflow/port"
)

type stubCompleter struct{}

func (stubCompleter) Complete(_ context.Context, req port.CompletionRequest) (*port.CompletionResult, error) {
	content := "descrição da imagem"
	switch req.Workflow {
	case string(entity.AgentRoleWriter):
		content = "conteúdo escrito"
	case string(entity.AgentRoleEditor):
		content = `{"summary":"s","finalContent":"conteúdo revisado"}`
	}
	return &port.CompletionResult{Content: content, Model: req.Model, InputTokens: 3, OutputTokens: 2, Duration: time.Millisecond}, nil
}

// sharedMemoryBuilder 多次命令共用同一个内存存储
func sharedMemoryBuilder() coreBuilder {
	store := memory.NewStore()
	pipeline := generation.NewChapterPipeline(stubCompleter{}, store.Chapters(), store.AgentLogs(), generation.DefaultSettings())
	svc := project.NewService(project.Deps{
		Projects: store.Projects(),
		Chapters: store.Chapters(),
		Logs:     store.AgentLogs(),
		Tx:       store,
		Pipeline: pipeline,
		Locker:   memory.NewLocker(),
	}, project.Options{})
	return func(_ context.Context, cfg *config.Config) (*wire.Core, func(), error) {
		return &wire.Core{Config: cfg, Service: svc}, func() {}, nil
	}
}

func run(t *testing.T, build coreBuilder, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	app := newApp(build)
	app.Writer = &buf
	full := append([]string{"contentctl", "--config", t.TempDir()}, args...)
	if err := app.Run(context.Background(), full); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return buf.String()
}

func TestCreateRunAndExport(t *testing.T) {
	build := sharedMemoryBuilder()

	out := run(t, build, "create", "--title", "Curso de Go", "--type", "course", "--chapter", "Básico", "--chapter", "Avançado")
	var p entity.Project
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if p.TotalChapters != 2 || p.UserID != "demo-user" {
		t.Fatalf("project = %+v", p)
	}

	out = run(t, build, "run", p.ID)
	var res project.RunResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Project.Status != entity.ProjectStatusCompleted {
		t.Fatalf("run = %+v", res)
	}

	md := run(t, build, "export", "--out=-", p.ID)
	if !strings.Contains(md, "## 2. Avançado\n\nconteúdo revisado") {
		t.Fatalf("markdown = %q", md)
	}

	// 其他用户看不到该项目
	app := newApp(build)
	app.Writer = &bytes.Buffer{}
	err := app.Run(context.Background(), []string{"contentctl", "--config", t.TempDir(), "--user", "bob", "get", p.ID})
	if err == nil || !strings.Contains(err.Error(), "project not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestYAMLOutput(t *testing.T) {
	out := run(t, sharedMemoryBuilder(), "--output", "yaml", "models")
	if !strings.Contains(out, "default: ") || !strings.Contains(out, "models:") {
		t.Fatalf("yaml = %q", out)
	}
}

func TestCreateFromOutlineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.yaml")
	data := `title: Manual de Campo
type: article
target_pages: 6
outline:
  - title: Contexto
    description: Por que isso importa
  - title: Passos
agent_config:
  writer: openai/gpt-4o-mini
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	out := run(t, sharedMemoryBuilder(), "create", "--outline", path, "--pages", "8")
	var p entity.Project
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatal(err)
	}
	if p.Title != "Manual de Campo" || p.TargetPages != 8 || p.Type != entity.ContentTypeArticle {
		t.Fatalf("project = %+v", p)
	}
	if len(p.Outline) != 2 || p.Outline[0].Description != "Por que isso importa" {
		t.Fatalf("outline = %+v", p.Outline)
	}
	if p.AgentConfig.Writer != "openai/gpt-4o-mini" {
		t.Fatalf("agent config = %+v", p.AgentConfig)
	}
}

func TestParseOutlineRejectsUnknownFields(t *testing.T) {
	if _, err := parseOutline([]byte("title: x\nchapterz: 3\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	app := newApp(sharedMemoryBuilder())
	app.Writer = &bytes.Buffer{}
	err := app.Run(context.Background(), []string{"contentctl", "--config", t.TempDir(), "token", "alice"})
	if err == nil {
		t.Fatal("expected error without jwt secret")
	}
}
