package vector

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Split breaks text into word-aligned spans of at most size runes. Each span
// after the first starts with trailing words of the previous span totalling
// at most overlap runes. Words longer than size are hard-split.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	words := boundWords(strings.Fields(text), size)
	joined := strings.Join(words, " ")
	if utf8.RuneCountInString(joined) <= size {
		return []string{joined}
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if len(current) > 0 && currentLen+1+wordLen > size {
			chunks = append(chunks, strings.Join(current, " "))
			current, currentLen = tail(current, overlap)
			for len(current) > 0 && currentLen+1+wordLen > size {
				currentLen = dropFirst(current, currentLen)
				current = current[1:]
			}
		}
		if len(current) > 0 {
			currentLen++
		}
		current = append(current, word)
		currentLen += wordLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// tail returns the longest suffix of words whose joined length is within
// limit, and that length.
func tail(words []string, limit int) ([]string, int) {
	keep, length := 0, 0
	for i := len(words) - 1; i >= 0; i-- {
		l := utf8.RuneCountInString(words[i])
		if keep > 0 {
			l += length + 1
		}
		if l > limit {
			break
		}
		length = l
		keep++
	}
	return append([]string(nil), words[len(words)-keep:]...), length
}

func dropFirst(words []string, length int) int {
	if len(words) <= 1 {
		return 0
	}
	return length - utf8.RuneCountInString(words[0]) - 1
}

// boundWords hard-splits any word longer than size runes.
func boundWords(words []string, size int) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= size {
			out = append(out, w)
			continue
		}
		runes := []rune(w)
		for len(runes) > size {
			out = append(out, string(runes[:size]))
			runes = runes[size:]
		}
		if len(runes) > 0 {
			out = append(out, string(runes))
		}
	}
	return out
}
