package ingest

import (
	"strings"
	"testing"
)

func TestParseMarkdownFrontmatter(t *testing.T) {
	doc, err := ParseMarkdown([]byte(`---
title: Go Concurrency
tags:
  - go
---

# Ignored heading

Body text here.
`))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if doc.Title != "Go Concurrency" {
		t.Errorf("Title = %q", doc.Title)
	}
	if strings.Contains(doc.Content, "---") {
		t.Errorf("front matter leaked into content: %q", doc.Content)
	}
	if _, ok := doc.Frontmatter["tags"]; !ok {
		t.Error("tags missing from frontmatter")
	}
}

func TestParseMarkdownTitleFromHeading(t *testing.T) {
	doc, err := ParseMarkdown([]byte("# Channels\n\nSome notes."))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Channels" {
		t.Errorf("Title = %q, want Channels", doc.Title)
	}
}

func TestParseMarkdownNoFrontmatter(t *testing.T) {
	doc, err := ParseMarkdown([]byte("Just notes."))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Just notes." {
		t.Errorf("Content = %q", doc.Content)
	}
	if len(doc.Frontmatter) != 0 {
		t.Errorf("Frontmatter = %v, want empty", doc.Frontmatter)
	}
}

func TestParseMarkdownUnterminatedFence(t *testing.T) {
	doc, err := ParseMarkdown([]byte("---\ntitle: broken\n\nbody"))
	if err != nil {
		t.Fatalf("unterminated fence should not error: %v", err)
	}
	if doc.Title != "" {
		t.Errorf("Title = %q, want empty", doc.Title)
	}
}

func TestParseMarkdownBadYAML(t *testing.T) {
	if _, err := ParseMarkdown([]byte("---\n: : :\n---\nbody")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestParseQABlocks(t *testing.T) {
	doc, err := ParseMarkdown([]byte(`# Notes

Q: What is a goroutine?
A: A lightweight thread managed by the Go runtime.

Q: What does the select statement
do with multiple ready channels?
A: It picks one of the ready cases
at random.

Some prose in between.

Q: Orphan question with no answer
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Cards) != 2 {
		t.Fatalf("got %d cards, want 2: %+v", len(doc.Cards), doc.Cards)
	}
	if doc.Cards[0].Question != "What is a goroutine?" {
		t.Errorf("question = %q", doc.Cards[0].Question)
	}
	if doc.Cards[1].Question != "What does the select statement do with multiple ready channels?" {
		t.Errorf("multiline question = %q", doc.Cards[1].Question)
	}
	if doc.Cards[1].Answer != "It picks one of the ready cases at random." {
		t.Errorf("multiline answer = %q", doc.Cards[1].Answer)
	}
}

func TestParseQABlocksBackToBack(t *testing.T) {
	doc, err := ParseMarkdown([]byte("Q: one?\nA: 1\nQ: two?\nA: 2"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(doc.Cards))
	}
	if doc.Cards[1].Answer != "2" {
		t.Errorf("second answer = %q", doc.Cards[1].Answer)
	}
}
