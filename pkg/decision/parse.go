package decision

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var actionNumber = regexp.MustCompile(`[0-9]+`)

// Answer is a parsed model reply.
type Answer struct {
	Index     int
	Reasoning string
}

// Parse extracts the chosen action index and the reasoning from a reply.
//
// The index is the first run of decimal digits anywhere in the text. The
// reasoning is every "."-separated fragment except the first (which usually
// restates the number) and the last (usually empty), each re-terminated
// with a period. Parse does not check the index against any menu.
func Parse(reply string) (Answer, error) {
	digits := actionNumber.FindString(reply)
	if digits == "" {
		return Answer{}, &ParseError{Reply: reply}
	}

	index, err := strconv.Atoi(digits)
	if err != nil {
		return Answer{}, &ParseError{Reply: reply, Err: err}
	}

	return Answer{
		Index:     index,
		Reasoning: Reasoning(reply),
	}, nil
}

// Reasoning returns the middle sentences of a reply.
func Reasoning(reply string) string {
	fragments := strings.Split(reply, ".")
	if len(fragments) <= 2 {
		return ""
	}

	var sb strings.Builder
	for _, fragment := range fragments[1 : len(fragments)-1] {
		sb.WriteString(fragment)
		sb.WriteString(".")
	}
	return strings.TrimLeftFunc(sb.String(), unicode.IsSpace)
}
