package entity

import (
	"testing"
	"time"
)

func TestProjectTransitions(t *testing.T) {
	cases := []struct {
		from, to ProjectStatus
		want     bool
	}{
		{ProjectStatusPlanning, ProjectStatusInProgress, true},
		{ProjectStatusPlanning, ProjectStatusPaused, true},
		{ProjectStatusPlanning, ProjectStatusCompleted, false},
		{ProjectStatusInProgress, ProjectStatusInProgress, true},
		{ProjectStatusInProgress, ProjectStatusCompleted, true},
		{ProjectStatusInProgress, ProjectStatusPlanning, false},
		{ProjectStatusPaused, ProjectStatusInProgress, true},
		{ProjectStatusPaused, ProjectStatusCompleted, false},
		{ProjectStatusCompleted, ProjectStatusInProgress, false},
		{ProjectStatusCompleted, ProjectStatusCancelled, false},
		{ProjectStatusCancelled, ProjectStatusInProgress, false},
		{ProjectStatusCancelled, ProjectStatusCancelled, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectStatusCompleted, ProjectStatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ProjectStatus{ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusPaused} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestChapterTransitions(t *testing.T) {
	if !ChapterStatusPending.CanTransitionTo(ChapterStatusWriting) {
		t.Error("pending -> writing")
	}
	if !ChapterStatusCompleted.CanTransitionTo(ChapterStatusWriting) {
		t.Error("completed -> writing is the regenerate path")
	}
	if ChapterStatusCompleted.CanTransitionTo(ChapterStatusPaused) {
		t.Error("completed chapters are never halted")
	}
	if !ChapterStatusPaused.CanTransitionTo(ChapterStatusPending) {
		t.Error("paused -> pending on resume")
	}
}

func TestTargetWordsPerChapter(t *testing.T) {
	p := &Project{TargetPages: 30, TotalChapters: 3}
	if got := p.TargetWordsPerChapter(500, 800); got != 5000 {
		t.Errorf("got %d", got)
	}
	p = &Project{TargetPages: 10, TotalChapters: 3}
	if got := p.TargetWordsPerChapter(500, 800); got != 1666 {
		t.Errorf("floor not applied: %d", got)
	}
	p = &Project{TargetPages: 10}
	if got := p.TargetWordsPerChapter(500, 800); got != 800 {
		t.Errorf("zero chapters: %d", got)
	}
	p = &Project{TotalChapters: 4}
	if got := p.TargetWordsPerChapter(500, 800); got != 800 {
		t.Errorf("zero pages: %d", got)
	}
}

func TestAuthoritativeTextPrecedence(t *testing.T) {
	c := &Chapter{DraftContent: "a b c"}
	if c.RecountWords() != 3 {
		t.Fatalf("draft count = %d", c.WordCount)
	}
	c.FinalContent = "a b"
	if c.AuthoritativeText() != "a b" || c.RecountWords() != 2 {
		t.Fatalf("final should win over draft")
	}
	c.ReviewedContent = "one\ttwo\nthree  four"
	if c.RecountWords() != 4 {
		t.Fatalf("reviewed count = %d", c.WordCount)
	}
}

func TestSetWriterOutputClearsReview(t *testing.T) {
	c := &Chapter{ReviewedContent: "old reviewed text here"}
	c.SetWriterOutput("new draft")
	if c.ReviewedContent != "" || c.DraftContent != "new draft" || c.FinalContent != "new draft" {
		t.Fatalf("unexpected chapter: %+v", c)
	}
	if c.WordCount != 2 {
		t.Fatalf("word count = %d", c.WordCount)
	}
}

func TestChapterCloneIsDeep(t *testing.T) {
	c := &Chapter{KeyPoints: []string{"a"}}
	c.AppendImagePrompt("p1", "m", time.Now())
	cp := c.Clone()
	cp.AppendImagePrompt("p2", "m", time.Now())
	cp.KeyPoints[0] = "changed"
	if len(c.Images) != 1 || c.KeyPoints[0] != "a" {
		t.Fatal("clone shares backing storage")
	}
}

func TestCountWords(t *testing.T) {
	if CountWords("") != 0 || CountWords("   ") != 0 {
		t.Error("blank text should be zero words")
	}
	if CountWords(" hello   world \n") != 2 {
		t.Error("expected 2 words")
	}
}
