// Package tabletext implements the line-level lexing shared by the
// weight-table text format: comment stripping, blank-line skipping,
// bracketed section tags and float tokens with an optional trailing
// unit suffix.
package tabletext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line is one meaningful line of a table file.
type Line struct {
	Text string
	Num  int
	// Comment is true for a full-line // comment. Phone-cost sections use
	// such a line to carry their symbol header, so comments that occupy a
	// whole line are surfaced rather than dropped.
	Comment bool
}

// Scanner yields the meaningful lines of a table file in order. Trailing
// // comments and /* */ block comments (including multi-line blocks) are
// removed; blank lines are skipped.
type Scanner struct {
	s       *bufio.Scanner
	lineNum int
	inBlock bool
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{s: bufio.NewScanner(r)}
}

// Next returns the next meaningful line, or ok=false at end of input.
func (sc *Scanner) Next() (Line, bool) {
	for sc.s.Scan() {
		sc.lineNum++
		text := sc.s.Text()

		if sc.inBlock {
			end := strings.Index(text, "*/")
			if end < 0 {
				continue
			}
			sc.inBlock = false
			text = text[end+2:]
		}

		text, comment := sc.strip(text)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		return Line{Text: text, Num: sc.lineNum, Comment: comment}, true
	}
	return Line{}, false
}

func (sc *Scanner) Err() error { return sc.s.Err() }

// strip removes comments from a single line. A line whose content is
// entirely a // comment is returned with its comment text and marked.
func (sc *Scanner) strip(text string) (string, bool) {
	for {
		start := strings.Index(text, "/*")
		if start < 0 {
			break
		}
		end := strings.Index(text[start+2:], "*/")
		if end < 0 {
			sc.inBlock = true
			text = text[:start]
			break
		}
		text = text[:start] + " " + text[start+2+end+2:]
	}

	if i := strings.Index(text, "//"); i >= 0 {
		head := strings.TrimSpace(text[:i])
		if head == "" {
			return strings.TrimSpace(text[i+2:]), true
		}
		return head, false
	}
	return text, false
}

// TagName reports whether a line introduces a section, e.g. "[LangID]".
func TagName(text string) (string, bool) {
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return "", false
	}
	name := strings.TrimSpace(text[1 : len(text)-1])
	if name == "" {
		return "", false
	}
	return name, true
}

// ParseFloat parses one numeric token, stripping the optional trailing
// 'f' unit suffix the trainer emits.
func ParseFloat(tok string) (float32, error) {
	tok = strings.TrimSuffix(tok, "f")
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", tok)
	}
	return float32(v), nil
}

// Floats parses every whitespace-separated token on a line.
func Floats(text string) ([]float32, error) {
	fields := strings.Fields(text)
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
