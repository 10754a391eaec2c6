package proposal

import (
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const fragmentLen = 48

// Parse reads a proposal from raw parser output.
//
// Code fences and prose around the first JSON object are ignored. If the
// object does not parse and was cut off before its closing braces (the usual
// symptom of a token limit), the missing closers are appended and parsing is
// retried once.
func Parse(raw string) (*Proposal, error) {
	text, complete := extractObject(raw)
	if text == "" {
		return nil, ErrNoJSONObject
	}

	s, err := unmarshal(text)
	if err == nil {
		return New(s), nil
	}
	if complete {
		return nil, &ParseError{Fragment: fragment(text), Err: err}
	}

	repaired := closeTruncated(text)
	s, retryErr := unmarshal(repaired)
	if retryErr != nil {
		return nil, &ParseError{Fragment: fragment(text), Err: retryErr}
	}
	p := New(s)
	p.Recovered = true
	return p, nil
}

func unmarshal(text string) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(text), s); err != nil {
		return nil, err
	}
	return s, nil
}

// extractObject returns the text from the first '{' to its matching '}'.
// complete is false when the input ends before the object is closed, in
// which case the remainder of the input is returned without trailing fences.
func extractObject(raw string) (text string, complete bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	s := raw[start:]

	depth := 0
	inString, escaped := false, false
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
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s), false
}

// closeTruncated appends whatever closes the open string, arrays and objects
// of a truncated JSON document. A dangling comma is dropped first.
func closeTruncated(text string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(text)
	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	} else {
		trimmed := strings.TrimRight(text, " \t\r\n")
		if strings.HasSuffix(trimmed, ",") {
			b.Reset()
			b.WriteString(strings.TrimSuffix(trimmed, ","))
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func fragment(text string) string {
	if len(text) <= fragmentLen {
		return text
	}
	return "..." + text[len(text)-fragmentLen:]
}
