package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Flashcard is one generated question and answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const generationPromptTemplate = `You are creating flashcards to help a student retain the material below.

Write %d flashcards covering the most important facts and concepts. Each
question must be answerable in one or two sentences without seeing the
material. Do not ask about trivia, formatting, or the source itself.

Format every flashcard exactly like this:

<flashcard>
Q: The question text
A: The answer text
</flashcard>

Material:

%s`

// DefaultFlashcardCount is how many cards one generation pass asks for.
const DefaultFlashcardCount = 10

// QuestionGenerator turns ingested source material into flashcards.
type QuestionGenerator struct {
	generator TextGenerator
	count     int
}

// NewQuestionGenerator creates a generator producing count cards per pass.
// A count below 1 uses DefaultFlashcardCount.
func NewQuestionGenerator(generator TextGenerator, count int) *QuestionGenerator {
	if count < 1 {
		count = DefaultFlashcardCount
	}
	return &QuestionGenerator{generator: generator, count: count}
}

// Generate produces flashcards for the given source material.
func (g *QuestionGenerator) Generate(ctx context.Context, contextText string) ([]Flashcard, error) {
	if strings.TrimSpace(contextText) == "" {
		return nil, fmt.Errorf("context text is empty")
	}

	prompt := fmt.Sprintf(generationPromptTemplate, g.count, contextText)

	raw, err := g.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	cards := ParseFlashcards(raw)
	if len(cards) == 0 {
		return nil, fmt.Errorf("model response contained no flashcards")
	}
	return cards, nil
}

// flashcardRegex matches one flashcard block. An optional trailing
// Explanation section is tolerated and dropped.
var flashcardRegex = regexp.MustCompile(`(?s)<flashcard>\s*Q:\s*(.*?)\s*A:\s*(.*?)\s*(?:Explanation:.*?)?</flashcard>`)

// ParseFlashcards extracts flashcard blocks from a model response.
// Blocks with an empty question or answer are skipped.
func ParseFlashcards(text string) []Flashcard {
	var cards []Flashcard
	for _, m := range flashcardRegex.FindAllStringSubmatch(text, -1) {
		question := strings.TrimSpace(m[1])
		answer := strings.TrimSpace(m[2])
		if question == "" || answer == "" {
			continue
		}
		cards = append(cards, Flashcard{Question: question, Answer: answer})
	}
	return cards
}
