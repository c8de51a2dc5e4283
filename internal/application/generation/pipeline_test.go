package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/infrastructure/persistence/memory"
	"content-factory-ai/internal/workflow/port"
)

// stubCompleter 按阶段返回预设结果
type stubCompleter struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []port.CompletionRequest
}

func newStub() *stubCompleter {
	return &stubCompleter{replies: map[string]string{}, errs: map[string]error{}}
}

func (s *stubCompleter) Complete(_ context.Context, req port.CompletionRequest) (*port.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err := s.errs[req.Workflow]; err != nil {
		return nil, err
	}
	return &port.CompletionResult{
		Content:      s.replies[req.Workflow],
		Model:        req.Model,
		InputTokens:  10,
		OutputTokens: 20,
		Duration:     5 * time.Millisecond,
	}, nil
}

func (s *stubCompleter) callsFor(role entity.AgentRole) []port.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []port.CompletionRequest
	for _, c := range s.calls {
		if c.Workflow == string(role) {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	store   *memory.Store
	stub    *stubCompleter
	pipe    *ChapterPipeline
	project *entity.Project
	chapter *entity.Chapter
}

func newFixture(t *testing.T, targetPages, totalChapters int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	stub := newStub()

	project := entity.NewProject("u1", "Go na Prática", entity.ContentTypeCourse)
	project.TargetPages = targetPages
	project.TotalChapters = totalChapters
	project.Outline = []entity.OutlineItem{{Order: 1, Title: "Introdução", ChapterKey: "k1", Description: "visão geral"}}
	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatal(err)
	}
	chapter := entity.NewChapter(project.ID, project.Outline[0])
	if err := store.Chapters().CreateBatch(ctx, []*entity.Chapter{chapter}); err != nil {
		t.Fatal(err)
	}

	pipe := NewChapterPipeline(stub, store.Chapters(), store.AgentLogs(), DefaultSettings())
	return &fixture{store: store, stub: stub, pipe: pipe, project: project, chapter: chapter}
}

func (f *fixture) logs(t *testing.T) []*entity.AgentLog {
	t.Helper()
	logs, err := f.store.AgentLogs().ListByChapter(context.Background(), f.chapter.ID)
	if err != nil {
		t.Fatal(err)
	}
	return logs
}

func TestPipelineHappyPath(t *testing.T) {
	f := newFixture(t, 100, 10)
	body := strings.Repeat("palavra ", 120)
	f.stub.replies["writer"] = body
	f.stub.replies["artist"] = "  Uma sala de aula iluminada  \n"
	f.stub.replies["editor"] = `{"status":"expanded","summary":"Resumo curto.","keyPoints":["a","",3,"b"],"suggestions":["s1"],"finalContent":"texto revisado com cinco palavras"}`

	res, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.TargetWords != 5000 {
		t.Fatalf("target words = %d, want floor(100*500/10)", res.TargetWords)
	}
	if !res.Illustrator.OK() || !res.Editor.OK() || !res.Editor.Parsed {
		t.Fatalf("outcomes = %+v / %+v", res.Illustrator, res.Editor)
	}

	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if got.Status != entity.ChapterStatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if got.DraftContent != body || got.FinalContent != body {
		t.Fatal("writer output must fill draft and final")
	}
	if got.ReviewedContent != "texto revisado com cinco palavras" || got.WordCount != 5 {
		t.Fatalf("reviewed = %q, words = %d", got.ReviewedContent, got.WordCount)
	}
	if got.ContextSummary != "Resumo curto." {
		t.Fatalf("summary = %q", got.ContextSummary)
	}
	if len(got.KeyPoints) != 2 || got.KeyPoints[1] != "b" || len(got.Connections) != 1 {
		t.Fatalf("key points = %v, connections = %v", got.KeyPoints, got.Connections)
	}
	if len(got.Images) != 1 || got.Images[0].Prompt != "Uma sala de aula iluminada" || got.Images[0].Type != "prompt" {
		t.Fatalf("images = %+v", got.Images)
	}

	logs := f.logs(t)
	if len(logs) != 3 {
		t.Fatalf("logs = %d, want 3", len(logs))
	}
	for i, role := range []entity.AgentRole{entity.AgentRoleWriter, entity.AgentRoleArtist, entity.AgentRoleEditor} {
		if logs[i].Role != role || logs[i].Status != entity.AgentLogStatusSuccess {
			t.Errorf("log %d = %s/%s", i, logs[i].Role, logs[i].Status)
		}
	}
	if logs[0].InputTokens != 10 || logs[0].OutputTokens != 20 || logs[0].DurationMs != 5 {
		t.Fatalf("writer log = %+v", logs[0])
	}
}

func TestPipelineDefaultTargetWords(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.stub.replies["writer"] = "texto"
	f.stub.replies["artist"] = "prompt"
	f.stub.replies["editor"] = "{}"

	res, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.TargetWords != 800 {
		t.Fatalf("target words = %d", res.TargetWords)
	}
	writerCall := f.stub.callsFor(entity.AgentRoleWriter)[0]
	if !strings.Contains(writerCall.UserPrompt, "aproximadamente 800 palavras") {
		t.Fatal("writer prompt must carry the target word count")
	}
	if !strings.Contains(writerCall.UserPrompt, "- Descrição: visão geral") {
		t.Fatal("writer prompt must carry the outline description")
	}
	if writerCall.Model != "deepseek/deepseek-v3.2-exp" {
		t.Fatalf("model = %s", writerCall.Model)
	}
}

func TestPipelineWriterFailurePausesChapter(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.stub.errs["writer"] = errors.New("upstream 500")

	_, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "upstream 500") {
		t.Fatalf("err = %v", err)
	}

	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if got.Status != entity.ChapterStatusPaused {
		t.Fatalf("status = %s, want paused", got.Status)
	}
	if len(f.stub.callsFor(entity.AgentRoleArtist)) != 0 || len(f.stub.callsFor(entity.AgentRoleEditor)) != 0 {
		t.Fatal("later stages must not run after writer failure")
	}
	logs := f.logs(t)
	if len(logs) != 1 || logs[0].Status != entity.AgentLogStatusError || logs[0].ErrorMessage != "upstream 500" {
		t.Fatalf("logs = %+v", logs)
	}
	if logs[0].InputTokens != 0 || logs[0].OutputTokens != 0 {
		t.Fatal("failed calls record zero tokens")
	}
}

func TestPipelineIllustratorFailureIsBestEffort(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.stub.replies["writer"] = "um dois três"
	f.stub.errs["artist"] = errors.New("image model down")
	f.stub.replies["editor"] = `{"finalContent":"um dois três quatro"}`

	res, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Illustrator.OK() {
		t.Fatal("illustrator outcome should carry the error")
	}
	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if got.Status != entity.ChapterStatusCompleted || len(got.Images) != 0 {
		t.Fatalf("chapter = %s, images = %d", got.Status, len(got.Images))
	}
	if got.ReviewedContent != "um dois três quatro" {
		t.Fatal("editor must still run after illustrator failure")
	}
}

func TestPipelineEditorNonJSONKeepsText(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.stub.replies["writer"] = "texto original do capítulo"
	f.stub.replies["artist"] = "prompt"
	f.stub.replies["editor"] = "Desculpe, não consigo responder em JSON."

	res, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Editor.OK() || res.Editor.Parsed {
		t.Fatalf("editor outcome = %+v", res.Editor)
	}
	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if got.ReviewedContent != "texto original do capítulo" {
		t.Fatalf("reviewed = %q", got.ReviewedContent)
	}
	if got.ContextSummary != "" || len(got.KeyPoints) != 0 {
		t.Fatal("unparsed review must not set summary or key points")
	}
	logs := f.logs(t)
	last := logs[len(logs)-1]
	if last.Role != entity.AgentRoleEditor || last.Status != entity.AgentLogStatusSuccess {
		t.Fatalf("editor log = %+v", last)
	}
}

// flakyChapters 在指定的第 N 次 Update 时返回错误
type flakyChapters struct {
	repository.ChapterRepository
	mu      sync.Mutex
	updates int
	failOn  map[int]bool
}

func (r *flakyChapters) Update(ctx context.Context, chapter *entity.Chapter) error {
	r.mu.Lock()
	r.updates++
	fail := r.failOn[r.updates]
	r.mu.Unlock()
	if fail {
		return errors.New("db down")
	}
	return r.ChapterRepository.Update(ctx, chapter)
}

func TestPipelineWriterSaveFailureLogsAndPauses(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.stub.replies["writer"] = "texto escrito"
	// 1: writing, 2: completed (fails), 3: paused
	chapters := &flakyChapters{ChapterRepository: f.store.Chapters(), failOn: map[int]bool{2: true}}
	pipe := NewChapterPipeline(f.stub, chapters, f.store.AgentLogs(), DefaultSettings())

	_, err := pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err == nil || err.Error() != "db down" {
		t.Fatalf("err = %v", err)
	}
	if n := len(f.stub.callsFor(entity.AgentRoleWriter)); n != 1 {
		t.Fatalf("writer calls = %d", n)
	}

	logs := f.logs(t)
	if len(logs) != 1 || logs[0].Role != entity.AgentRoleWriter || logs[0].Status != entity.AgentLogStatusSuccess {
		t.Fatalf("logs = %+v, want one writer success", logs)
	}
	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if got.Status != entity.ChapterStatusPaused {
		t.Fatalf("status = %s, want paused", got.Status)
	}
}

func TestPipelineBestEffortSaveFailuresStillLog(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.stub.replies["writer"] = "texto escrito"
	f.stub.replies["artist"] = "prompt"
	f.stub.replies["editor"] = `{"finalContent":"texto revisado"}`
	// 3: illustrator save, 4: editor save
	chapters := &flakyChapters{ChapterRepository: f.store.Chapters(), failOn: map[int]bool{3: true, 4: true}}
	pipe := NewChapterPipeline(f.stub, chapters, f.store.AgentLogs(), DefaultSettings())

	res, err := pipe.Run(context.Background(), f.project, f.chapter, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Illustrator.OK() || res.Editor.OK() {
		t.Fatalf("outcomes should carry the save errors: %+v / %+v", res.Illustrator, res.Editor)
	}

	logs := f.logs(t)
	if len(logs) != 3 {
		t.Fatalf("logs = %d, want one per attempted stage", len(logs))
	}
	for _, l := range logs {
		if l.Status != entity.AgentLogStatusSuccess {
			t.Errorf("%s log status = %s", l.Role, l.Status)
		}
	}
	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if got.Status != entity.ChapterStatusCompleted || got.FinalContent != "texto escrito" {
		t.Fatalf("chapter = %s / %q", got.Status, got.FinalContent)
	}
}

func TestPipelineRejectsNonPending(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.chapter.Status = entity.ChapterStatusCompleted

	if _, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{}); err == nil {
		t.Fatal("non-pending chapter must be rejected")
	}
	if len(f.stub.calls) != 0 {
		t.Fatal("no model calls expected")
	}
}

func TestPipelineRegeneratePreservesImages(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.chapter.Status = entity.ChapterStatusCompleted
	f.chapter.ReviewedContent = "versão antiga"
	f.chapter.AppendImagePrompt("antigo", "m", time.Now())
	if err := f.store.Chapters().Update(context.Background(), f.chapter); err != nil {
		t.Fatal(err)
	}
	f.stub.replies["writer"] = "versão nova"
	f.stub.replies["artist"] = "novo"
	f.stub.errs["editor"] = errors.New("editor timeout")

	if _, err := f.pipe.Run(context.Background(), f.project, f.chapter, RunOptions{Regenerate: true}); err != nil {
		t.Fatal(err)
	}
	got, _ := f.store.Chapters().GetByID(context.Background(), f.chapter.ID)
	if len(got.Images) != 2 || got.Images[0].Prompt != "antigo" || got.Images[1].Prompt != "novo" {
		t.Fatalf("images = %+v", got.Images)
	}
	if got.ReviewedContent != "" || got.AuthoritativeText() != "versão nova" {
		t.Fatalf("regenerated text = %q / %q", got.ReviewedContent, got.AuthoritativeText())
	}

	logs := f.logs(t)
	if last := logs[len(logs)-1]; last.Role != entity.AgentRoleEditor || last.Status != entity.AgentLogStatusError {
		t.Fatalf("editor failure must be logged: %+v", last)
	}
}

func TestIllustratorSnippetFallbacks(t *testing.T) {
	f := newFixture(t, 10, 1)
	f.stub.replies["artist"] = "p"

	f.pipe.illustrator.Run(context.Background(), f.project, f.chapter)
	call := f.stub.callsFor(entity.AgentRoleArtist)[0]
	if !strings.Contains(call.UserPrompt, "Curso ou livro educativo.") {
		t.Fatal("empty chapter and project description should use the generic fallback")
	}

	f.project.Description = "Descrição do projeto"
	f.chapter.FinalContent = strings.Repeat("á", 900)
	f.pipe.illustrator.Run(context.Background(), f.project, f.chapter)
	call = f.stub.callsFor(entity.AgentRoleArtist)[1]
	if strings.Contains(call.UserPrompt, strings.Repeat("á", 801)) || !strings.Contains(call.UserPrompt, strings.Repeat("á", 800)) {
		t.Fatal("snippet must be cut at 800 characters")
	}
}

func TestPriorContextInWriterPrompt(t *testing.T) {
	f := newFixture(t, 10, 2)
	ctx := context.Background()
	f.chapter.Status = entity.ChapterStatusCompleted
	f.chapter.ContextSummary = "Apresenta a linguagem."
	if err := f.store.Chapters().Update(ctx, f.chapter); err != nil {
		t.Fatal(err)
	}
	second := entity.NewChapter(f.project.ID, entity.OutlineItem{Order: 2, Title: "Tipos", ChapterKey: "k2"})
	if err := f.store.Chapters().CreateBatch(ctx, []*entity.Chapter{second}); err != nil {
		t.Fatal(err)
	}
	f.stub.replies["writer"] = "texto"
	f.stub.replies["editor"] = "{}"

	if _, err := f.pipe.Run(ctx, f.project, second, RunOptions{}); err != nil {
		t.Fatal(err)
	}
	call := f.stub.callsFor(entity.AgentRoleWriter)[0]
	if !strings.Contains(call.UserPrompt, "- 1. Introdução: Apresenta a linguagem.") {
		t.Fatalf("prior context missing: %s", call.UserPrompt)
	}
}
