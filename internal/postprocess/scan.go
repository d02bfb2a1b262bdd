package postprocess

import "strings"

type segmentKind int

const (
	segCode segmentKind = iota
	segString
	segComment
)

type segment struct {
	text string
	kind segmentKind
}

// segments splits source into code, string literal and comment runs. Block
// comments are always recognized; // comments only when lineComments is set
// (CSS has none, and url(http://...) would otherwise be misread).
func segments(src string, lineComments bool) []segment {
	var out []segment
	start := 0
	flush := func(end int) {
		if end > start {
			out = append(out, segment{text: src[start:end], kind: segCode})
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			flush(i)
			end := len(src)
			if j := strings.Index(src[i+2:], "*/"); j >= 0 {
				end = i + 2 + j + 2
			}
			out = append(out, segment{text: src[i:end], kind: segComment})
			i, start = end, end
		case lineComments && c == '/' && i+1 < len(src) && src[i+1] == '/':
			flush(i)
			end := len(src)
			if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
				end = i + j
			}
			out = append(out, segment{text: src[i:end], kind: segComment})
			i, start = end, end
		case c == '"' || c == '\'' || c == '`':
			flush(i)
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				} else if src[j] == '\n' && c != '`' {
					break
				}
				j++
			}
			if j < len(src) && src[j] == c {
				j++
			}
			j = min(j, len(src))
			out = append(out, segment{text: src[i:j], kind: segString})
			i, start = j, j
		default:
			i++
		}
	}
	flush(len(src))
	return out
}

func hasLineComments(ext string) bool {
	return ext == ".js"
}
