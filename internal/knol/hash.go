// Package knol derives a stable identity from card text, used to recognize a
// card that is already in the deck when importing.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Normalize lowercases and trims the front and back and joins them with a
// newline, normalizing line endings and runs of inner whitespace.
func Normalize(c domain.Content) string {
	normalizePart := func(part string) string {
		p := strings.ReplaceAll(part, "\r\n", "\n")
		lines := strings.Split(strings.ToLower(p), "\n")
		for i, l := range lines {
			lines[i] = strings.Join(strings.Fields(l), " ")
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}
	return normalizePart(c.Front) + "\n" + normalizePart(c.Back)
}

// Hash returns the hex SHA-256 of the normalized content.
func Hash(c domain.Content) string {
	sum := sha256.Sum256([]byte(Normalize(c)))
	return fmt.Sprintf("%x", sum)
}

// Set is a set of content hashes.
type Set map[string]struct{}

// NewSet hashes the content of every card.
func NewSet(cards []domain.Flashcard) Set {
	s := make(Set, len(cards))
	for _, c := range cards {
		s[Hash(c.Content())] = struct{}{}
	}
	return s
}

// Add records c and reports whether it was not present before.
func (s Set) Add(c domain.Content) bool {
	h := Hash(c)
	if _, ok := s[h]; ok {
		return false
	}
	s[h] = struct{}{}
	return true
}
