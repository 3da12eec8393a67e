// Package ingest parses source material into contexts and ready-made
// question/answer pairs. Markdown files may carry YAML front matter and
// explicit Q:/A: blocks authored by hand; everything else becomes context
// content handed to the question generator.
package ingest

import (
	"bufio"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// QA is one hand-authored question/answer pair found in a document.
type QA struct {
	Question string
	Answer   string
}

// Document is a parsed Markdown source file.
type Document struct {
	// Title comes from the front matter "title" key, the first H1
	// heading, or stays empty.
	Title string

	// Content is the Markdown body with front matter stripped.
	Content string

	// Frontmatter holds the parsed YAML key/value pairs.
	Frontmatter map[string]interface{}

	// Cards are explicit Q:/A: blocks from the body, in order.
	Cards []QA
}

// ParseMarkdown parses one Markdown document.
func ParseMarkdown(content []byte) (*Document, error) {
	text := string(content)

	fm, body, err := splitFrontmatter(text)
	if err != nil {
		return nil, fmt.Errorf("frontmatter parse error: %w", err)
	}

	title := extractString(fm, "title", "")
	if title == "" {
		title = extractH1(body)
	}

	return &Document{
		Title:       title,
		Content:     strings.TrimSpace(body),
		Frontmatter: fm,
		Cards:       parseQABlocks(body),
	}, nil
}

// splitFrontmatter separates YAML front matter (between --- delimiters)
// from the Markdown body. Returns an empty map and the full text when no
// front matter is found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		// An unterminated fence is treated as body, not an error.
		return map[string]interface{}{}, text, nil
	}

	fm := map[string]interface{}{}
	raw := strings.Join(lines[1:end], "\n")
	if strings.TrimSpace(raw) != "" {
		if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
			return nil, "", err
		}
	}

	body := strings.Join(lines[end+1:], "\n")
	return fm, body, nil
}

// parseQABlocks extracts explicit question blocks. A block starts at a
// line beginning with "Q:"; lines until "A:" extend the question, and the
// answer runs until a blank line or the next "Q:".
func parseQABlocks(body string) []QA {
	var (
		cards    []QA
		question []string
		answer   []string
		inAnswer bool
	)

	flush := func() {
		q := strings.TrimSpace(strings.Join(question, " "))
		a := strings.TrimSpace(strings.Join(answer, " "))
		if q != "" && a != "" {
			cards = append(cards, QA{Question: q, Answer: a})
		}
		question, answer, inAnswer = nil, nil, false
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Q:"):
			flush()
			question = append(question, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "A:") && question != nil:
			inAnswer = true
			answer = append(answer, strings.TrimSpace(line[2:]))
		case line == "":
			if inAnswer {
				flush()
			}
		case question != nil && !inAnswer:
			question = append(question, line)
		case inAnswer:
			answer = append(answer, line)
		}
	}
	flush()

	return cards
}

func extractString(fm map[string]interface{}, key, fallback string) string {
	if v, ok := fm[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

func extractH1(body string) string {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
