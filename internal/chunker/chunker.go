// Package chunker splits narration text into paragraph chunks for journal indexing.
package chunker

import (
	"strings"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Piece is a chunk of narration with its line span in the original text.
type Piece struct {
	Text      string
	StartLine int
	EndLine   int
}

// Split breaks text into pieces. Text no longer than MaxSize is one piece.
// Longer text is cut at headings and blank lines, small paragraphs are merged
// up to TargetSize, and paragraphs over MaxSize are cut at sentence ends.
func Split(text string, opts Options) []Piece {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []Piece{{Text: text, StartLine: 1, EndLine: strings.Count(text, "\n") + 1}}
	}
	return merge(paragraphs(text), opts)
}

// paragraphs splits on blank lines and before markdown headings.
func paragraphs(text string) []Piece {
	lines := strings.Split(text, "\n")
	var out []Piece
	var current []string
	start := 1

	flush := func(end int) {
		if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
			out = append(out, Piece{Text: t, StartLine: start, EndLine: end})
		}
		current = nil
		start = end + 1
	}

	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush(n - 1)
		case strings.HasPrefix(trimmed, "#") && len(current) > 0:
			flush(n - 1)
			current = append(current, line)
		default:
			if len(current) == 0 {
				start = n
			}
			current = append(current, line)
		}
	}
	flush(len(lines))
	return out
}

func merge(paras []Piece, opts Options) []Piece {
	var out []Piece
	var acc Piece

	flush := func() {
		if acc.Text == "" {
			return
		}
		if len(acc.Text) > opts.MaxSize {
			out = append(out, splitSentences(acc, opts)...)
		} else {
			out = append(out, acc)
		}
		acc = Piece{}
	}

	for _, p := range paras {
		if acc.Text == "" {
			acc = p
			continue
		}
		if combined := acc.Text + "\n\n" + p.Text; len(combined) <= opts.TargetSize {
			acc.Text = combined
			acc.EndLine = p.EndLine
			continue
		}
		flush()
		acc = p
	}
	flush()
	return out
}

// splitSentences cuts an oversized paragraph at sentence ends, falling back
// to word boundaries for a single sentence longer than TargetSize.
func splitSentences(p Piece, opts Options) []Piece {
	var out []Piece
	var b strings.Builder

	emit := func() {
		if t := strings.TrimSpace(b.String()); t != "" {
			out = append(out, Piece{Text: t, StartLine: p.StartLine, EndLine: p.EndLine})
		}
		b.Reset()
	}

	for _, s := range sentences(p.Text) {
		if b.Len() > 0 && b.Len()+len(s) > opts.TargetSize {
			emit()
		}
		if len(s) > opts.MaxSize {
			for _, w := range strings.Fields(s) {
				if b.Len() > 0 && b.Len()+len(w)+1 > opts.TargetSize {
					emit()
				}
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(w)
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	emit()
	return out
}

func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?', '\n':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
