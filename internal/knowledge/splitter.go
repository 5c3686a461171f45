package knowledge

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 350
	DefaultChunkOverlap = 100
)

// DefaultSeparators are tried in order, from paragraph breaks down to single
// characters. The CJK full stop and comma keep Chinese prose splitting on
// sentence boundaries.
var DefaultSeparators = []string{"\n\n", "\n", "。", "，", ". ", ", ", " ", ""}

// Splitter breaks text into overlapping chunks of at most ChunkSize
// characters. It splits on the first separator present in the text and
// recurses into pieces that are still too long with the remaining
// separators. Each separator stays attached to the start of the piece that
// follows it.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// NewSplitter returns a splitter with the default parameters.
func NewSplitter() *Splitter {
	return &Splitter{
		ChunkSize:  DefaultChunkSize,
		Overlap:    DefaultChunkOverlap,
		Separators: DefaultSeparators,
	}
}

// Split returns the chunks of text. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, candidate := range seps {
		if candidate == "" {
			sep = candidate
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs small pieces into chunks, carrying up to Overlap characters of
// the previous chunk into the next.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.ChunkSize && len(current) > 0 {
			if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
				chunks = append(chunks, c)
			}
			for len(current) > 0 && (total > s.Overlap || total+n > s.ChunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitKeep splits text on sep, keeping sep at the start of each following
// piece. An empty sep splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
