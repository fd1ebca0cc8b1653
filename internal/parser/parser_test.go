package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
	}{
		{
			name:          "Single card",
			input:         "Q: Capital of Japan?\nA: Tokyo",
			expectedCards: 1,
			expectedFront: "Capital of Japan?",
			expectedBack:  "Tokyo",
		},
		{
			name:          "Context is appended to the back",
			input:         "Q: 7 x 8\nA: 56\nC: Times tables",
			expectedCards: 1,
			expectedFront: "7 x 8",
			expectedBack:  "56\n\nTimes tables",
		},
		{
			name:          "Context without answer",
			input:         "Q: Name a prime\nC: Any will do",
			expectedCards: 1,
			expectedFront: "Name a prime",
			expectedBack:  "Any will do",
		},
		{
			name: "Answer spans lines",
			input: `
Q: Name the first three noble gases
A: Helium
Neon
Argon

`,
			expectedCards: 1,
			expectedFront: "Name the first three noble gases",
			expectedBack:  "Helium\nNeon\nArgon",
		},
		{
			name: "Blank line between cards",
			input: `
Q: Largest planet
A: Jupiter

Q: Smallest planet
A: Mercury
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `Q: First
A: One
---
stray text is ignored
Q: Second
A: Two`,
			expectedCards: 2,
		},
		{
			name:          "Answer without question is dropped",
			input:         "A: orphan\n---\n",
			expectedCards: 0,
		},
		{
			name:          "Plain prose",
			input:         "# Notes\nNothing to review here.",
			expectedCards: 0,
		},
		{
			name:          "Markers without a space",
			input:         "Q:H2O\nA:Water",
			expectedCards: 1,
			expectedFront: "H2O",
			expectedBack:  "Water",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Parse() got %d cards, want %d", len(cards), tc.expectedCards)
			}
			if tc.expectedCards != 1 {
				return
			}
			if got := cards[0]; got.Front != tc.expectedFront || got.Back != tc.expectedBack {
				t.Errorf("Parse() got %q / %q, want %q / %q", got.Front, got.Back, tc.expectedFront, tc.expectedBack)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("Q: Go?\nA: Yes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cards, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Front != "Go?" {
		t.Errorf("Unexpected cards: %+v", cards)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
