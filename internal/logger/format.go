package logger

import "strings"

// stripAnsiCodes removes CSI colour sequences (\x1b[...m) and OSC 8
// hyperlinks (\x1b]8;;uri\x07) so file logs stay plain text
func stripAnsiCodes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\x1b' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}

		switch s[i+1] {
		case '[':
			// CSI: runs until the first letter
			i += 2
			for i < len(s) && !isAnsiTerminator(s[i]) {
				i++
			}
		case ']':
			// OSC: runs until BEL or ST (\x1b\\)
			i += 2
			for i < len(s) {
				if s[i] == '\x07' {
					break
				}
				if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '\\' {
					i++
					break
				}
				i++
			}
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}

func isAnsiTerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
