package scan

import "strings"

// State is the lexical context of the scanner cursor.
type State int

const (
	// Normal is plain code; delimiters are significant here.
	Normal State = iota
	// InString is inside a string or char literal.
	InString
	// InLineComment is inside a // comment.
	InLineComment
	// InBlockComment is inside a /* */ comment.
	InBlockComment
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case InString:
		return "string"
	case InLineComment:
		return "line-comment"
	case InBlockComment:
		return "block-comment"
	default:
		return "unknown"
	}
}

// Class classifies the bytes consumed by a single scanner step.
type Class int

const (
	// Code bytes are ordinary program text.
	Code Class = iota
	// Literal bytes belong to a string or char literal, quotes included.
	Literal
	// Comment bytes belong to a comment, markers included.
	Comment
)

// Step describes the bytes consumed by one call to Scanner.Next.
type Step struct {
	Off   int
	Len   int
	Class Class
}

const rawQuote = `"""`

// Scanner is a forward-only cursor over text that tracks quote and comment
// state. The zero offset passed to New is assumed to be in Normal state.
type Scanner struct {
	src   string
	pos   int
	state State
	quote byte
	raw   bool
	depth int
}

// New creates a scanner positioned at start.
func New(src string, start int) *Scanner {
	if start < 0 {
		start = 0
	}

	if start > len(src) {
		start = len(src)
	}

	return &Scanner{src: src, pos: start}
}

// Pos returns the offset of the next unconsumed byte.
func (s *Scanner) Pos() int { return s.pos }

// State returns the lexical state at the cursor.
func (s *Scanner) State() State { return s.state }

// Done reports whether the whole input has been consumed.
func (s *Scanner) Done() bool { return s.pos >= len(s.src) }

// Next consumes one lexical unit and reports what it was.
func (s *Scanner) Next() (Step, bool) {
	if s.Done() {
		return Step{}, false
	}

	switch s.state {
	case InString:
		return s.nextInString(), true
	case InLineComment:
		return s.nextInLineComment(), true
	case InBlockComment:
		return s.nextInBlockComment(), true
	default:
		return s.nextNormal(), true
	}
}

func (s *Scanner) nextNormal() Step {
	off := s.pos
	c := s.src[off]

	switch {
	case c == '"' && strings.HasPrefix(s.src[off:], rawQuote):
		s.state, s.quote, s.raw = InString, '"', true
		return s.advance(len(rawQuote), Literal)
	case c == '"' || c == '\'':
		s.state, s.quote, s.raw = InString, c, false
		return s.advance(1, Literal)
	case c == '/' && s.peek(1) == '/':
		s.state = InLineComment
		return s.advance(2, Comment)
	case c == '/' && s.peek(1) == '*':
		s.state, s.depth = InBlockComment, 1
		return s.advance(2, Comment)
	default:
		return s.advance(1, Code)
	}
}

func (s *Scanner) nextInString() Step {
	off := s.pos
	c := s.src[off]

	if s.raw {
		if strings.HasPrefix(s.src[off:], rawQuote) {
			s.state, s.raw = Normal, false
			return s.advance(len(rawQuote), Literal)
		}

		return s.advance(1, Literal)
	}

	switch c {
	case '\\':
		return s.advance(2, Literal)
	case '\n':
		// single-line literals cannot span lines; recover at the newline
		s.state = Normal
		return s.advance(1, Code)
	case s.quote:
		s.state = Normal
		return s.advance(1, Literal)
	default:
		return s.advance(1, Literal)
	}
}

func (s *Scanner) nextInLineComment() Step {
	if s.src[s.pos] == '\n' {
		s.state = Normal
		return s.advance(1, Code)
	}

	return s.advance(1, Comment)
}

func (s *Scanner) nextInBlockComment() Step {
	switch {
	case s.src[s.pos] == '/' && s.peek(1) == '*':
		s.depth++
		return s.advance(2, Comment)
	case s.src[s.pos] == '*' && s.peek(1) == '/':
		s.depth--
		if s.depth == 0 {
			s.state = Normal
		}

		return s.advance(2, Comment)
	default:
		return s.advance(1, Comment)
	}
}

func (s *Scanner) peek(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}

	return s.src[s.pos+n]
}

func (s *Scanner) advance(n int, class Class) Step {
	off := s.pos

	s.pos += n
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}

	return Step{Off: off, Len: s.pos - off, Class: class}
}

// IsOpen reports whether c opens a delimited region.
func IsOpen(c byte) bool {
	return c == '{' || c == '(' || c == '['
}

// IsClose reports whether c closes a delimited region.
func IsClose(c byte) bool {
	return c == '}' || c == ')' || c == ']'
}

// Closer returns the closing delimiter for an opening one.
func Closer(open byte) (byte, bool) {
	switch open {
	case '{':
		return '}', true
	case '(':
		return ')', true
	case '[':
		return ']', true
	default:
		return 0, false
	}
}

// NextSignificantDelimiter returns the next delimiter at or after pos that is
// in Normal state, assuming pos itself is in Normal state.
func NextSignificantDelimiter(text string, pos int) (byte, int, bool) {
	sc := New(text, pos)

	for {
		st, ok := sc.Next()
		if !ok {
			return 0, -1, false
		}

		if st.Class != Code {
			continue
		}

		if c := text[st.Off]; IsOpen(c) || IsClose(c) {
			return c, st.Off, true
		}
	}
}

// StateAt returns the lexical state in effect at offset off, scanning from
// the beginning of text.
func StateAt(text string, off int) State {
	sc := New(text, 0)
	for sc.Pos() < off {
		if _, ok := sc.Next(); !ok {
			break
		}
	}

	return sc.State()
}

// StripComments returns text with every comment removed. Literals are kept
// verbatim.
func StripComments(text string) string {
	var b strings.Builder

	b.Grow(len(text))

	sc := New(text, 0)
	for {
		st, ok := sc.Next()
		if !ok {
			break
		}

		if st.Class != Comment {
			b.WriteString(text[st.Off : st.Off+st.Len])
		}
	}

	return b.String()
}

// SkipTrivia returns the first offset at or after pos that is neither
// whitespace nor part of a comment.
func SkipTrivia(text string, pos int) int {
	sc := New(text, pos)
	for {
		st, ok := sc.Next()
		if !ok {
			return len(text)
		}

		if st.Class == Comment {
			continue
		}

		if st.Class == Code && isSpace(text[st.Off]) {
			continue
		}

		return st.Off
	}
}

// LineOf returns the 1-based line number of offset off.
func LineOf(text string, off int) int {
	if off > len(text) {
		off = len(text)
	}

	return strings.Count(text[:off], "\n") + 1
}

// LineIndent returns the leading whitespace of the line containing off.
func LineIndent(text string, off int) string {
	start := strings.LastIndexByte(text[:off], '\n') + 1

	end := start
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}

	return text[start:end]
}

// Reindent replaces the leading from of every line after the first with to.
// Blank lines, lines that start inside a string or comment and lines that do
// not start with from are kept as written.
func Reindent(text, from, to string) string {
	if from == to {
		return text
	}

	var b strings.Builder

	b.Grow(len(text))

	sc := New(text, 0)
	last := 0

	for off := 0; ; {
		nl := strings.IndexByte(text[off:], '\n')
		if nl < 0 {
			break
		}

		start := off + nl + 1
		off = start

		for sc.Pos() < start {
			if _, ok := sc.Next(); !ok {
				break
			}
		}

		if sc.Pos() != start || sc.State() != Normal {
			continue
		}

		if start >= len(text) || text[start] == '\n' || text[start] == '\r' || !strings.HasPrefix(text[start:], from) {
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(to)
		last = start + len(from)
	}

	b.WriteString(text[last:])

	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
