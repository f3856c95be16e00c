package emotion

import (
	"fmt"
	"strconv"
	"strings"

	"emovox/internal/apierr"
)

// Protocol labels. The model is prompted to emit exactly this layout:
//
//	【感情ステータス】
//	喜び：<int>
//	怒り：<int>
//	悲しみ：<int>
//	楽しさ：<int>
//	【対話の内容】
//	<dialogue to the end of the text>
const (
	HeaderLabel    = "【感情ステータス】"
	DelimiterLabel = "【対話の内容】"
	HappyLabel     = "喜び"
	AngryLabel     = "怒り"
	SadLabel       = "悲しみ"
	ExcitedLabel   = "楽しさ"
)

// ParseError describes where a reply broke the protocol. It matches
// apierr.ErrMalformedResponse with errors.Is.
type ParseError struct {
	Line   int // 1-based, 0 when the input ended early
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("emotion reply: %s", e.Reason)
	}
	return fmt.Sprintf("emotion reply: line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return apierr.ErrMalformedResponse
}

type scanner struct {
	text string
	pos  int
	line int
}

// next returns the next line without its terminator.
func (s *scanner) next() (string, bool) {
	if s.pos >= len(s.text) {
		return "", false
	}
	s.line++
	rest := s.text[s.pos:]
	i := strings.IndexByte(rest, '\n')
	if i < 0 {
		s.pos = len(s.text)
		return strings.TrimSuffix(rest, "\r"), true
	}
	s.pos += i + 1
	return strings.TrimSuffix(rest[:i], "\r"), true
}

func (s *scanner) remainder() string {
	return s.text[s.pos:]
}

// Parse reads the emotion header and returns the scores with the dialogue text.
// Lines before the header are ignored; the dialogue is returned verbatim.
func Parse(text string) (Reply, error) {
	sc := &scanner{text: text}

	for {
		line, ok := sc.next()
		if !ok {
			return Reply{}, &ParseError{Reason: "missing " + HeaderLabel}
		}
		if strings.TrimSpace(line) == HeaderLabel {
			break
		}
	}

	var v Vector
	fields := []struct {
		label string
		dst   *int
	}{
		{HappyLabel, &v.Happy},
		{AngryLabel, &v.Angry},
		{SadLabel, &v.Sad},
		{ExcitedLabel, &v.Excited},
	}
	for _, f := range fields {
		line, ok := sc.next()
		if !ok {
			return Reply{}, &ParseError{Reason: "missing field " + f.label}
		}
		n, err := parseField(line, f.label)
		if err != nil {
			return Reply{}, &ParseError{Line: sc.line, Reason: err.Error()}
		}
		*f.dst = n
	}

	line, ok := sc.next()
	if !ok {
		return Reply{}, &ParseError{Reason: "missing " + DelimiterLabel}
	}
	if strings.TrimSpace(line) != DelimiterLabel {
		return Reply{}, &ParseError{Line: sc.line, Reason: fmt.Sprintf("expected %s, got %q", DelimiterLabel, line)}
	}

	dialogue := sc.remainder()
	if dialogue == "" {
		return Reply{}, &ParseError{Reason: "empty dialogue"}
	}

	return Reply{Vector: v, Text: dialogue}, nil
}

// parseField accepts "label：N" (or an ASCII colon). Anything after the digits
// is ignored, e.g. "喜び：3/5".
func parseField(line, label string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), label)
	if !ok {
		return 0, fmt.Errorf("expected field %s, got %q", label, line)
	}

	rest, ok = strings.CutPrefix(rest, "：")
	if !ok {
		rest, ok = strings.CutPrefix(rest, ":")
	}
	if !ok {
		return 0, fmt.Errorf("field %s: missing colon", label)
	}
	rest = strings.TrimLeft(rest, " \t")

	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("field %s: %q is not an integer", label, rest)
	}

	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", label, err)
	}
	return n, nil
}
