package repair

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoContent indicates the input contained no JSON object at all.
// Callers should treat this as "the model returned nothing actionable",
// which is a different condition from a mangled-but-present object.
var ErrNoContent = errors.New("repair: no JSON content in input")

// ErrUnrepairable indicates a JSON object was present but none of the
// repair passes produced a parseable result.
var ErrUnrepairable = errors.New("repair: input could not be repaired")

// pass is a single repair heuristic. Passes are applied cumulatively in
// order, re-validating after each one, so each pass can be unit-tested
// against malformed inputs independently of the others.
type pass struct {
	name  string
	apply func(string) string
}

var passes = []pass{
	{"strip_prose", stripProse},
	{"balance_delimiters", balanceDelimiters},
	{"terminate_strings", terminateStrings},
	{"remove_trailing_commas", removeTrailingCommas},
	{"escape_control_chars", escapeControlChars},
}

// Repair takes raw model output claimed to contain one JSON object and
// returns a syntactically valid JSON text. Already-valid input is
// returned unchanged, which makes Repair idempotent. The returned error
// distinguishes empty input (ErrNoContent) from input that survived no
// repair pass (ErrUnrepairable).
func Repair(raw string) (string, error) {
	out, _, err := RepairDetail(raw)
	return out, err
}

// RepairDetail is Repair plus the name of the pass that produced valid
// output ("" when the input was already valid). The pass name feeds the
// repair-outcome metrics.
func RepairDetail(raw string) (string, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || !strings.ContainsRune(s, '{') {
		return "", "", ErrNoContent
	}
	if json.Valid([]byte(s)) {
		return s, "", nil
	}

	for _, p := range passes {
		s = p.apply(s)
		if json.Valid([]byte(s)) {
			return s, p.name, nil
		}
	}
	return "", "", ErrUnrepairable
}

// stripProse removes text before the first '{' and after the matching
// last '}'. Models frequently wrap the object in prose or markdown
// fences; everything outside the outermost object is discarded.
func stripProse(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	s = s[start:]

	// Find the closing brace matching the first one. If the object is
	// truncated the balance pass appends the missing closers later.
	depth := 0
	var st stringState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.stepAt(s, i) {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

// balanceDelimiters appends closers for braces and brackets left open at
// end of input. If the scan ends inside a string literal the string is
// closed first so the appended closers land outside it.
func balanceDelimiters(s string) string {
	var stack []byte
	var st stringState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.stepAt(s, i) {
			continue
		}
		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}
	if len(stack) == 0 && !st.inString {
		return s
	}

	var b strings.Builder
	b.WriteString(s)
	if st.inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// terminateStrings closes string literals that run past their intended
// end. The telltale is a bare newline inside a string followed by what
// looks like the next key or a closing delimiter: the closing quote is
// inserted at the last plausible boundary, i.e. just before a trailing
// structural character when one precedes the newline, otherwise at the
// newline itself. Newlines that are followed by ordinary text are left
// alone for the escape pass.
func terminateStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case (c == '\n' || c == '\r') && resumesStructure(s[i+1:]):
				// Close the string. Prefer the position before a
				// structural character we already copied, so that a
				// trailing "," or "}" ends up outside the literal.
				closeStringBefore(&b)
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			escaped = false
		}
		b.WriteByte(c)
	}
	if inString {
		b.WriteByte('"')
	}
	return b.String()
}

// closeStringBefore inserts a closing quote into b, placing it before a
// structural suffix (comma or closing delimiter, plus any whitespace)
// when the copied text ends with one.
func closeStringBefore(b *strings.Builder) {
	s := b.String()
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c == ' ' || c == '\t' {
			i--
			continue
		}
		if c == ',' || c == '}' || c == ']' {
			i--
		}
		break
	}
	b.Reset()
	b.WriteString(s[:i])
	b.WriteByte('"')
	b.WriteString(s[i:])
}

// resumesStructure reports whether text after a newline looks like the
// document resuming: the next key ("key":), or a closing delimiter.
func resumesStructure(rest string) bool {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t' || rest[i] == '\n' || rest[i] == '\r') {
		i++
	}
	if i >= len(rest) {
		return true
	}
	switch rest[i] {
	case '}', ']':
		return true
	case '"':
		// A quoted token followed by a colon is the next object key.
		end := strings.IndexByte(rest[i+1:], '"')
		if end < 0 {
			return false
		}
		j := i + 1 + end + 1
		for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t') {
			j++
		}
		return j < len(rest) && rest[j] == ':'
	}
	return false
}

// removeTrailingCommas drops commas that directly precede a closing
// brace or bracket, outside string literals.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var st stringState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.stepAt(s, i) {
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeControlChars replaces bare control characters inside string
// literals with their JSON escape sequences.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				b.WriteString(`\r`)
				continue
			case c == '\t':
				b.WriteString(`\t`)
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			escaped = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stringState tracks whether a byte-wise scan is inside a string
// literal. stepAt returns true while the byte at i belongs to string
// content. A bare newline followed by resuming structure (next key or
// closing delimiter) exits the string: that shape means the literal was
// never terminated, and the characters after it must be scanned as
// structure, not content. A newline followed by ordinary text is kept
// inside the string so a multi-line value stays one literal.
type stringState struct {
	inString bool
	escaped  bool
}

func (st *stringState) stepAt(s string, i int) bool {
	c := s[i]
	if st.inString {
		switch {
		case st.escaped:
			st.escaped = false
		case c == '\\':
			st.escaped = true
		case c == '"':
			st.inString = false
		case (c == '\n' || c == '\r') && resumesStructure(s[i+1:]):
			st.inString = false
			return false
		}
		return true
	}
	if c == '"' {
		st.inString = true
		st.escaped = false
		return true
	}
	return false
}
