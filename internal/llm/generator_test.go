package llm

import (
	"context"
	"testing"
)

func TestParseFlashcards(t *testing.T) {
	text := `Here are your flashcards:

<flashcard>
Q: What does WAL stand for?
A: Write-ahead logging.
</flashcard>

<flashcard>
Q: Why use a single writer connection with SQLite?
A: SQLite allows one concurrent writer, so serialising writes avoids busy errors.
Explanation: This only matters under concurrent load.
</flashcard>`

	cards := ParseFlashcards(text)
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(cards))
	}
	if cards[0].Question != "What does WAL stand for?" {
		t.Errorf("question = %q", cards[0].Question)
	}
	if cards[0].Answer != "Write-ahead logging." {
		t.Errorf("answer = %q", cards[0].Answer)
	}
	// The Explanation section must not leak into the answer.
	if got := cards[1].Answer; got != "SQLite allows one concurrent writer, so serialising writes avoids busy errors." {
		t.Errorf("answer with explanation = %q", got)
	}
}

func TestParseFlashcardsSkipsEmpty(t *testing.T) {
	text := `<flashcard>
Q:
A: orphan answer
</flashcard>
<flashcard>
Q: real question
A: real answer
</flashcard>`

	cards := ParseFlashcards(text)
	if len(cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(cards))
	}
	if cards[0].Question != "real question" {
		t.Errorf("question = %q", cards[0].Question)
	}
}

func TestParseFlashcardsNoMatches(t *testing.T) {
	if cards := ParseFlashcards("no cards here"); cards != nil {
		t.Errorf("got %v, want nil", cards)
	}
}

func TestGenerateRejectsEmptyContext(t *testing.T) {
	g := NewQuestionGenerator(&fakeGenerator{}, 0)
	if _, err := g.Generate(context.Background(), "  "); err == nil {
		t.Error("expected error for empty context")
	}
}

func TestGenerateFailsWithoutCards(t *testing.T) {
	g := NewQuestionGenerator(&fakeGenerator{response: "sorry, I cannot help"}, 5)
	if _, err := g.Generate(context.Background(), "some material"); err == nil {
		t.Error("expected error when no flashcards parse")
	}
}

func TestGenerateReturnsCards(t *testing.T) {
	g := NewQuestionGenerator(&fakeGenerator{
		response: "<flashcard>\nQ: q1\nA: a1\n</flashcard>",
	}, 5)
	cards, err := g.Generate(context.Background(), "material")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cards) != 1 || cards[0].Question != "q1" {
		t.Errorf("cards = %v", cards)
	}
}
