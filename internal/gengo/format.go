package gengo

import "strings"

const (
	DocCommentPrefix = "//"
	LineLength       = 80
)

// FormatDocComments formats documentation text (without leading // or /*)
// into one or more lines, breaking at the first space once a line is
// longer than [LineLength] (so a line can run past it by one word), each prefixed by
// [DocCommentPrefix], suitable for placement directly above a Go
// declaration.
func FormatDocComments(docs string, indent bool) string {
	if docs == "" {
		return ""
	}
	space := byte(' ')
	if indent {
		space = '\t'
	}
	var b strings.Builder
	lineLength := 0
	for _, c := range docs {
		if lineLength == 0 {
			b.WriteString(DocCommentPrefix)
			lineLength = len(DocCommentPrefix)
		}
		switch c {
		case '\n':
			b.WriteByte('\n')
			lineLength = 0
			continue
		case ' ':
			switch {
			case lineLength == len(DocCommentPrefix):
				continue // drop leading spaces
			case lineLength > LineLength:
				b.WriteByte('\n')
				lineLength = 0
				continue
			}
		default:
			if lineLength == len(DocCommentPrefix) {
				b.WriteByte(space)
				lineLength++
			}
		}
		b.WriteRune(c)
		lineLength++
	}
	if lineLength != 0 {
		b.WriteByte('\n')
	}
	return b.String()
}
