// Package parser reads flashcards from markdown deck files.
//
// A card starts with a "Q:" line holding the front text. "A:" starts the
// back text and an optional "C:" adds context that is shown under the
// answer. Lines that follow a prefix continue that field, and a line of
// "---" ends the current card.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

type field int

const (
	fieldNone field = iota
	fieldQuestion
	fieldAnswer
	fieldContext
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Content, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

type builder struct {
	cards   []domain.Content
	parts   map[field][]string
	current field
}

func (b *builder) start(f field, rest string) {
	if f == fieldQuestion && b.current != fieldNone {
		b.finish()
	}
	b.current = f
	b.parts[f] = append(b.parts[f], strings.TrimPrefix(rest, " "))
}

func (b *builder) continueField(line string) {
	if b.current != fieldNone {
		b.parts[b.current] = append(b.parts[b.current], line)
	}
}

func (b *builder) finish() {
	front := joinField(b.parts[fieldQuestion])
	if front != "" {
		back := joinField(b.parts[fieldAnswer])
		if ctx := joinField(b.parts[fieldContext]); ctx != "" {
			if back != "" {
				back += "\n\n"
			}
			back += ctx
		}
		b.cards = append(b.cards, domain.Content{Front: front, Back: back})
	}
	b.parts = map[field][]string{}
	b.current = fieldNone
}

// joinField joins the lines of a field, dropping trailing blank lines.
func joinField(lines []string) string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader) ([]domain.Content, error) {
	scanner := bufio.NewScanner(r)
	b := &builder{parts: map[field][]string{}}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == separator:
			b.finish()
		case strings.HasPrefix(line, questionPrefix):
			b.start(fieldQuestion, line[len(questionPrefix):])
		case strings.HasPrefix(line, answerPrefix):
			b.start(fieldAnswer, line[len(answerPrefix):])
		case strings.HasPrefix(line, contextPrefix):
			b.start(fieldContext, line[len(contextPrefix):])
		default:
			b.continueField(line)
		}
	}
	b.finish()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.cards, nil
}
