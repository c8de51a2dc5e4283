package project

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"content-factory-ai/internal/application/generation"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/infrastructure/persistence/memory"
	"content-factory-ai/internal/workflow/port"
	apperrors "content-factory-ai/pkg/errors"
)

// scriptedCompleter 写作阶段按章节标题决定是否失败
type scriptedCompleter struct {
	mu        sync.Mutex
	failTitle map[string]error
	editor    string
	calls     []port.CompletionRequest
	onWrite   func()
	// cancelled 调用结束时 Context 已取消的次数
	cancelled int
}

func newScripted() *scriptedCompleter {
	return &scriptedCompleter{failTitle: map[string]error{}, editor: `{"summary":"Resumo.","finalContent":"texto final revisado"}`}
}

func (c *scriptedCompleter) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResult, error) {
	defer func() {
		if ctx.Err() != nil {
			c.mu.Lock()
			c.cancelled++
			c.mu.Unlock()
		}
	}()

	c.mu.Lock()
	c.calls = append(c.calls, req)
	hook := c.onWrite
	c.mu.Unlock()

	content := "prompt de imagem"
	switch req.Workflow {
	case string(entity.AgentRoleWriter):
		if hook != nil {
			hook()
		}
		for title, err := range c.failTitle {
			if strings.Contains(req.UserPrompt, "- Título: "+title+"\n") {
				return nil, err
			}
		}
		content = "rascunho do capítulo gerado"
	case string(entity.AgentRoleEditor):
		content = c.editor
	}
	return &port.CompletionResult{Content: content, Model: req.Model, InputTokens: 100, OutputTokens: 50, Duration: time.Millisecond}, nil
}

// writerTitles 写作调用依次对应的章节标题（提示词中最后一个标题行）
func (c *scriptedCompleter) writerTitles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var titles []string
	for _, call := range c.calls {
		if call.Workflow != string(entity.AgentRoleWriter) {
			continue
		}
		var last string
		for _, line := range strings.Split(call.UserPrompt, "\n") {
			if strings.HasPrefix(line, "- Título: ") {
				last = strings.TrimPrefix(line, "- Título: ")
			}
		}
		titles = append(titles, last)
	}
	return titles
}

type fakePublisher struct {
	key  string
	body string
}

func (p *fakePublisher) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	b, _ := io.ReadAll(body)
	p.key, p.body = key, string(b)
	return "https://cdn.example.com/" + key, nil
}

type env struct {
	store  *memory.Store
	locker *memory.Locker
	llm    *scriptedCompleter
	svc    *Service
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	store := memory.NewStore()
	locker := memory.NewLocker()
	llm := newScripted()
	pipeline := generation.NewChapterPipeline(llm, store.Chapters(), store.AgentLogs(), generation.DefaultSettings())
	svc := NewService(Deps{
		Projects:  store.Projects(),
		Chapters:  store.Chapters(),
		Logs:      store.AgentLogs(),
		Tx:        store,
		Pipeline:  pipeline,
		Locker:    locker,
		Publisher: &fakePublisher{},
	}, opts)
	return &env{store: store, locker: locker, llm: llm, svc: svc}
}

func (e *env) create(t *testing.T, user string, titles ...string) *entity.Project {
	t.Helper()
	in := CreateInput{Title: "Guia de Go", Type: entity.ContentTypeBook, TargetPages: 30}
	for _, title := range titles {
		in.Outline = append(in.Outline, OutlineInput{Title: title})
	}
	p, err := e.svc.Create(context.Background(), user, in)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (e *env) chapters(t *testing.T, projectID string) []*entity.Chapter {
	t.Helper()
	chapters, err := e.store.Chapters().ListByProject(context.Background(), projectID)
	if err != nil {
		t.Fatal(err)
	}
	return chapters
}

func (e *env) setChapterStatus(t *testing.T, c *entity.Chapter, status entity.ChapterStatus) {
	t.Helper()
	c.Status = status
	if err := e.store.Chapters().Update(context.Background(), c); err != nil {
		t.Fatal(err)
	}
}

func TestCreateProject(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")

	if p.Status != entity.ProjectStatusPlanning || p.TotalChapters != 3 || p.CurrentChapter != 0 {
		t.Fatalf("project = %+v", p)
	}
	chapters := e.chapters(t, p.ID)
	for i, c := range chapters {
		if c.Order != i+1 || c.Status != entity.ChapterStatusPending || c.ChapterKey == "" {
			t.Fatalf("chapter %d = %+v", i, c)
		}
		if c.ChapterKey != p.Outline[i].ChapterKey {
			t.Fatal("chapter key must match outline item")
		}
	}
}

func TestCreateProjectValidation(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"empty outline", CreateInput{Title: "X", Type: entity.ContentTypeBook}},
		{"missing title", CreateInput{Type: entity.ContentTypeBook, Outline: []OutlineInput{{Title: "a"}}}},
		{"bad type", CreateInput{Title: "X", Type: "poem", Outline: []OutlineInput{{Title: "a"}}}},
		{"blank outline title", CreateInput{Title: "X", Outline: []OutlineInput{{Title: "  "}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, "u1", tc.in)
			if !apperrors.IsCode(err, apperrors.CodeInvalidParam) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestCreateProjectSynthesisesOutline(t *testing.T) {
	e := newEnv(t, Options{})
	p, err := e.svc.Create(context.Background(), "u1", CreateInput{Title: "Curso", Type: entity.ContentTypeCourse, ChapterCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Outline) != 2 || p.Outline[1].Title != "Curso - Chapter 2" {
		t.Fatalf("outline = %+v", p.Outline)
	}
}

func TestRunPendingCompletesProject(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")

	res, err := e.svc.RunPending(context.Background(), "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Project.Status != entity.ProjectStatusCompleted || res.Project.CurrentChapter != 3 || res.Processed != 3 {
		t.Fatalf("result = %+v, project = %+v", res, res.Project)
	}
	for _, c := range e.chapters(t, p.ID) {
		if c.Status != entity.ChapterStatusCompleted {
			t.Fatalf("chapter %d = %s", c.Order, c.Status)
		}
		if c.WordCount != entity.CountWords(c.AuthoritativeText()) {
			t.Fatalf("chapter %d word count = %d", c.Order, c.WordCount)
		}
	}

	got := e.llm.writerTitles()
	if strings.Join(got, ",") != "Intro,Body,Conclusion" {
		t.Fatalf("writer order = %v", got)
	}

	logs, _ := e.store.AgentLogs().ListRecentByProject(context.Background(), p.ID, 0)
	if len(logs) != 9 {
		t.Fatalf("logs = %d, want 3 per chapter", len(logs))
	}
	// 倒序：越新的流水对应越靠后的章节
	var lastWriter time.Time
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].Role == entity.AgentRoleWriter {
			if logs[i].CreatedAt.Before(lastWriter) {
				t.Fatal("writer logs must be monotonic")
			}
			lastWriter = logs[i].CreatedAt
		}
	}
}

func TestRunPendingRequiresOwnership(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro")

	_, err := e.svc.RunPending(context.Background(), "intruder", p.ID)
	if !apperrors.IsCode(err, apperrors.CodeProjectNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(e.llm.calls) != 0 {
		t.Fatal("no generation for foreign projects")
	}
}

func TestRunPendingRejectsCancelled(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro")
	if _, err := e.svc.Cancel(context.Background(), "u1", p.ID); err != nil {
		t.Fatal(err)
	}
	_, err := e.svc.RunPending(context.Background(), "u1", p.ID)
	if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunPendingWriterFailureAborts(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")
	e.llm.failTitle["Intro"] = apperrors.Upstream(errors.New("status 500"), "completion call failed")

	_, err := e.svc.RunPending(context.Background(), "u1", p.ID)
	if !apperrors.IsCode(err, apperrors.CodeLLMCallFailed) {
		t.Fatalf("err = %v", err)
	}

	chapters := e.chapters(t, p.ID)
	if chapters[0].Status != entity.ChapterStatusPaused {
		t.Fatalf("failed chapter = %s", chapters[0].Status)
	}
	if chapters[1].Status != entity.ChapterStatusPending || chapters[2].Status != entity.ChapterStatusPending {
		t.Fatal("later chapters must stay pending when the batch aborts")
	}

	logs, _ := e.store.AgentLogs().ListByChapter(context.Background(), chapters[0].ID)
	if len(logs) != 1 || logs[0].Role != entity.AgentRoleWriter || logs[0].Status != entity.AgentLogStatusError {
		t.Fatalf("logs = %+v", logs)
	}

	project, _ := e.svc.Get(context.Background(), "u1", p.ID)
	if project.Status != entity.ProjectStatusInProgress || project.CurrentChapter != 0 {
		t.Fatalf("project = %s/%d", project.Status, project.CurrentChapter)
	}
}

func TestRunPendingContinueOnFailure(t *testing.T) {
	e := newEnv(t, Options{ContinueOnChapterFailure: true})
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")
	e.llm.failTitle["Body"] = errors.New("status 429")

	res, err := e.svc.RunPending(context.Background(), "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Order != 2 || res.Failures[0].Error != "status 429" {
		t.Fatalf("failures = %+v", res.Failures)
	}
	if res.Project.Status != entity.ProjectStatusInProgress || res.Project.CurrentChapter != 2 {
		t.Fatalf("project = %s/%d", res.Project.Status, res.Project.CurrentChapter)
	}
	chapters := e.chapters(t, p.ID)
	if chapters[2].Status != entity.ChapterStatusCompleted {
		t.Fatal("chapters after the failure must still run")
	}
}

func TestRunPendingFinishesChapterWhenCallerGoesAway(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once
	e.llm.onWrite = func() { once.Do(cancel) }

	res, err := e.svc.RunPending(ctx, "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Halted || res.Processed != 1 || len(res.Failures) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if e.llm.cancelled != 0 {
		t.Fatalf("%d model calls saw a cancelled context", e.llm.cancelled)
	}

	chapters := e.chapters(t, p.ID)
	if chapters[0].Status != entity.ChapterStatusCompleted || chapters[0].ReviewedContent == "" {
		t.Fatalf("in-flight chapter = %s", chapters[0].Status)
	}
	if chapters[1].Status != entity.ChapterStatusPending || chapters[2].Status != entity.ChapterStatusPending {
		t.Fatal("chapters after the disconnect must stay pending for the next run")
	}
	if res.Project.CurrentChapter != 1 || res.Project.Status != entity.ProjectStatusInProgress {
		t.Fatalf("project = %s/%d", res.Project.Status, res.Project.CurrentChapter)
	}
	logs, _ := e.store.AgentLogs().ListRecentByProject(context.Background(), p.ID, 0)
	for _, l := range logs {
		if l.Status != entity.AgentLogStatusSuccess {
			t.Fatalf("unexpected %s log for %s", l.Status, l.Role)
		}
	}
}

func TestRunPendingStopsWhenPausedMidRun(t *testing.T) {
	e := newEnv(t, Options{})
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")

	var once sync.Once
	e.llm.onWrite = func() {
		once.Do(func() {
			if _, err := e.svc.Pause(context.Background(), "u1", p.ID); err != nil {
				t.Error(err)
			}
		})
	}

	res, err := e.svc.RunPending(context.Background(), "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Halted || res.Processed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Project.Status != entity.ProjectStatusPaused {
		t.Fatalf("status = %s", res.Project.Status)
	}
	chapters := e.chapters(t, p.ID)
	if chapters[0].Status != entity.ChapterStatusCompleted {
		t.Fatalf("in-flight chapter = %s", chapters[0].Status)
	}
	if chapters[1].Status != entity.ChapterStatusPaused || chapters[2].Status != entity.ChapterStatusPaused {
		t.Fatal("remaining chapters must be paused")
	}
}

func TestPauseAndResume(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro", "Body", "Conclusion")
	chapters := e.chapters(t, p.ID)
	e.setChapterStatus(t, chapters[0], entity.ChapterStatusWriting)

	paused, err := e.svc.Pause(ctx, "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paused.Status != entity.ProjectStatusPaused {
		t.Fatalf("status = %s", paused.Status)
	}
	for _, c := range e.chapters(t, p.ID) {
		if c.Status != entity.ChapterStatusPaused {
			t.Fatalf("chapter %d = %s", c.Order, c.Status)
		}
	}

	resumed, err := e.svc.Resume(ctx, "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Status != entity.ProjectStatusInProgress {
		t.Fatalf("status = %s", resumed.Status)
	}
	for _, c := range e.chapters(t, p.ID) {
		if c.Status != entity.ChapterStatusPending {
			t.Fatalf("chapter %d = %s", c.Order, c.Status)
		}
	}
}

func TestIllegalTransitionsLeaveStatus(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	planning := e.create(t, "u1", "Intro")
	if _, err := e.svc.Resume(ctx, "u1", planning.ID); !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("resume planning: %v", err)
	}
	if got, _ := e.svc.Get(ctx, "u1", planning.ID); got.Status != entity.ProjectStatusPlanning {
		t.Fatalf("status = %s", got.Status)
	}

	done := e.create(t, "u1", "Intro")
	if _, err := e.svc.RunPending(ctx, "u1", done.ID); err != nil {
		t.Fatal(err)
	}
	for name, op := range map[string]func(context.Context, string, string) (*entity.Project, error){
		"pause":  e.svc.Pause,
		"resume": e.svc.Resume,
		"cancel": e.svc.Cancel,
	} {
		if _, err := op(ctx, "u1", done.ID); !apperrors.IsCode(err, apperrors.CodeInvalidState) {
			t.Fatalf("%s completed: %v", name, err)
		}
	}
	if got, _ := e.svc.Get(ctx, "u1", done.ID); got.Status != entity.ProjectStatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro", "Body")
	chapters := e.chapters(t, p.ID)
	e.setChapterStatus(t, chapters[0], entity.ChapterStatusCompleted)

	first, err := e.svc.Cancel(ctx, "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	after := e.chapters(t, p.ID)
	if after[0].Status != entity.ChapterStatusCompleted || after[1].Status != entity.ChapterStatusCancelled {
		t.Fatalf("chapters = %s/%s", after[0].Status, after[1].Status)
	}

	second, err := e.svc.Cancel(ctx, "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != entity.ProjectStatusCancelled || second.Status != first.Status {
		t.Fatalf("status = %s / %s", first.Status, second.Status)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatal("second cancel must not write")
	}
}

func TestDeleteCascades(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro")
	if _, err := e.svc.RunPending(ctx, "u1", p.ID); err != nil {
		t.Fatal(err)
	}

	if err := e.svc.Delete(ctx, "u2", p.ID); !apperrors.IsCode(err, apperrors.CodeProjectNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := e.svc.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.store.Projects().GetByID(ctx, p.ID); got != nil {
		t.Fatal("project must be gone")
	}
	if len(e.chapters(t, p.ID)) != 0 {
		t.Fatal("chapters must be gone")
	}
	if logs, _ := e.store.AgentLogs().ListRecentByProject(ctx, p.ID, 0); len(logs) != 0 {
		t.Fatal("logs must be gone")
	}
}

func TestRegenerateChapter(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro")
	if _, err := e.svc.RunPending(ctx, "u1", p.ID); err != nil {
		t.Fatal(err)
	}
	chapter := e.chapters(t, p.ID)[0]
	if len(chapter.Images) != 1 {
		t.Fatalf("images = %d", len(chapter.Images))
	}

	got, err := e.svc.RegenerateChapter(ctx, "u1", p.ID, chapter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.ChapterStatusCompleted || len(got.Images) != 2 {
		t.Fatalf("chapter = %s, images = %d", got.Status, len(got.Images))
	}

	other := e.create(t, "u1", "Outro")
	if _, err := e.svc.RegenerateChapter(ctx, "u1", other.ID, chapter.ID); !apperrors.IsCode(err, apperrors.CodeChapterNotFound) {
		t.Fatalf("cross-project regenerate: %v", err)
	}
}

func TestRegenerateConflictsWithRunningProject(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro")
	chapter := e.chapters(t, p.ID)[0]

	release, ok, _ := e.locker.TryLock(ctx, runLockName(p.ID), time.Minute)
	if !ok {
		t.Fatal("lock should be free")
	}
	defer release(ctx)

	if _, err := e.svc.RegenerateChapter(ctx, "u1", p.ID, chapter.ID); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("err = %v", err)
	}
	if _, err := e.svc.RunPending(ctx, "u1", p.ID); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddChapter(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro")

	c, err := e.svc.AddChapter(ctx, "u1", p.ID, AddChapterInput{Title: "Apêndice"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Order != 2 || c.Status != entity.ChapterStatusPending {
		t.Fatalf("chapter = %+v", c)
	}
	got, _ := e.svc.Get(ctx, "u1", p.ID)
	if got.TotalChapters != 2 || len(got.Outline) != 2 || got.Outline[1].ChapterKey != c.ChapterKey {
		t.Fatalf("project = %+v", got)
	}

	if _, err := e.svc.Cancel(ctx, "u1", p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.AddChapter(ctx, "u1", p.ID, AddChapterInput{Title: "Extra"}); !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("err = %v", err)
	}
}

// racingChapters 在分配序号时模拟一次并发运行写入项目状态与进度
type racingChapters struct {
	repository.ChapterRepository
	onNextOrder func()
}

func (r *racingChapters) NextOrder(ctx context.Context, projectID string) (int, error) {
	r.onNextOrder()
	return r.ChapterRepository.NextOrder(ctx, projectID)
}

func TestAddChapterKeepsConcurrentStatusAndProgress(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro")

	chapters := &racingChapters{ChapterRepository: e.store.Chapters(), onNextOrder: func() {
		if _, err := e.store.Projects().CompareAndSetStatus(ctx, p.ID,
			[]entity.ProjectStatus{entity.ProjectStatusPlanning}, entity.ProjectStatusInProgress); err != nil {
			t.Error(err)
		}
		if err := e.store.Projects().UpdateProgress(ctx, p.ID, 1); err != nil {
			t.Error(err)
		}
	}}
	svc := NewService(Deps{
		Projects: e.store.Projects(),
		Chapters: chapters,
		Logs:     e.store.AgentLogs(),
		Tx:       e.store,
		Pipeline: generation.NewChapterPipeline(e.llm, chapters, e.store.AgentLogs(), generation.DefaultSettings()),
		Locker:   e.locker,
	}, Options{})

	if _, err := svc.AddChapter(ctx, "u1", p.ID, AddChapterInput{Title: "Apêndice"}); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(ctx, "u1", p.ID)
	if got.Status != entity.ProjectStatusInProgress || got.CurrentChapter != 1 {
		t.Fatalf("project = %s/%d, concurrent writes were overwritten", got.Status, got.CurrentChapter)
	}
	if got.TotalChapters != 2 || len(got.Outline) != 2 {
		t.Fatalf("outline = %d items, total = %d", len(got.Outline), got.TotalChapters)
	}
}

func TestAnalytics(t *testing.T) {
	e := newEnv(t, Options{AnalyticsLogLimit: 2})
	ctx := context.Background()
	p := e.create(t, "u1", "Intro", "Body")
	e.llm.failTitle["Body"] = errors.New("boom")
	_, _ = e.svc.RunPending(ctx, "u1", p.ID)

	a, err := e.svc.Analytics(ctx, "u1", p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a.ChapterStats.Total != 2 || a.ChapterStats.Completed != 1 || a.ChapterStats.Paused != 1 {
		t.Fatalf("stats = %+v", a.ChapterStats)
	}
	if a.TokenUsage.AgentCalls != 4 || a.TokenUsage.FailedCalls != 1 {
		t.Fatalf("usage = %+v", a.TokenUsage)
	}
	if a.TokenUsage.Input != 300 || a.TokenUsage.Output != 150 || a.TokenUsage.Total != 450 {
		t.Fatalf("tokens = %+v", a.TokenUsage)
	}
	if a.TokenUsage.EstimatedCostUSD <= 0 {
		t.Fatal("default model has a price")
	}
	if len(a.RecentLogs) != 2 || a.RecentLogs[0].Status != entity.AgentLogStatusError {
		t.Fatalf("recent = %+v", a.RecentLogs)
	}

	if _, err := e.svc.Analytics(ctx, "u2", p.ID); !apperrors.IsCode(err, apperrors.CodeProjectNotFound) {
		t.Fatalf("foreign analytics: %v", err)
	}
}

func TestExportMarkdown(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	p, err := e.svc.Create(ctx, "u1", CreateInput{
		Title:       "Introdução à Programação",
		Description: "Um guia prático.",
		Type:        entity.ContentTypeCourse,
		TargetPages: 12,
		Outline:     []OutlineInput{{Title: "Variáveis"}, {Title: "Funções"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	first := e.chapters(t, p.ID)[0]
	first.DraftContent = "rascunho"
	first.ReviewedContent = "  revisado  "
	if err := e.store.Chapters().Update(ctx, first); err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.Export(ctx, "u1", p.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Filename != "introducao-a-programacao.md" {
		t.Fatalf("filename = %s", res.Filename)
	}
	want := "# Introdução à Programação\n\nUm guia prático.\n\nType: course\nTarget pages: 12\n\n---\n\n" +
		"## 1. Variáveis\n\nrevisado\n\n" +
		"## 2. Funções\n\n_Content not generated yet._\n\n"
	if string(res.Content) != want {
		t.Fatalf("markdown = %q", res.Content)
	}
	if res.URL != "https://cdn.example.com/exports/"+p.ID+"/introducao-a-programacao.md" {
		t.Fatalf("url = %s", res.URL)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Introdução à Programação": "introducao-a-programacao",
		"  Go!  em   Produção ":    "go-em-producao",
		"???":                      "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	if exportFilename("???") != "project.md" {
		t.Fatal("empty slug falls back to project.md")
	}
}
