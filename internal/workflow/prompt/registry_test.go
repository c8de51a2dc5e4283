package prompt

import (
	"context"
	"strings"
	"testing"
)

func TestRenderWriter(t *testing.T) {
	r := NewRegistry()
	system, user, err := r.Render(context.Background(), PromptChapterWriterV1, map[string]any{
		"project_title":       "Go na Prática",
		"project_type":        "course",
		"project_description": "(sem descrição)",
		"target_pages":        40,
		"chapter_order":       2,
		"chapter_title":       "Goroutines",
		"chapter_notes":       "",
		"prior_context":       "",
		"target_words":        1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(system, "escritor") {
		t.Fatalf("system = %q", system)
	}
	for _, want := range []string{"Go na Prática", "- Ordem: 2", "Goroutines", "aproximadamente 1000 palavras", "- Meta de páginas: 40"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestRenderEditorKeepsLiteralBraces(t *testing.T) {
	r := NewRegistry()
	_, user, err := r.Render(context.Background(), PromptChapterEditorV1, map[string]any{
		"project_type":  "book",
		"current_words": 120,
		"target_words":  800,
		"current_text":  "texto com {chaves} literais",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(user, "{\n  \"status\"") || !strings.Contains(user, "\"finalContent\"") {
		t.Fatalf("json skeleton not rendered: %q", user)
	}
	if !strings.Contains(user, "texto com {chaves} literais") {
		t.Fatal("chapter text must be inserted verbatim")
	}
	if !strings.Contains(user, "(120 palavras)") || !strings.Contains(user, "~800 palavras") {
		t.Fatal("word counts missing")
	}
}

func TestRenderIllustrator(t *testing.T) {
	r := NewRegistry()
	_, user, err := r.Render(context.Background(), PromptChapterIllustratorV1, map[string]any{
		"chapter_order": 1,
		"chapter_title": "Introdução",
		"snippet":       "Curso ou livro educativo.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(user, "Capítulo: 1 - Introdução") {
		t.Fatalf("user = %q", user)
	}
}

func TestUnknownPrompt(t *testing.T) {
	if _, err := NewRegistry().ChatTemplate("missing_v9"); err == nil {
		t.Fatal("expected error")
	}
}
