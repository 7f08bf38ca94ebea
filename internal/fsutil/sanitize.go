package fsutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeName turns an arbitrary client-supplied name into a single safe path
// component. The result only contains ASCII letters, digits, '_', '.' and
// '-', and never starts or ends with '.' or '_'. It returns "" when nothing
// usable is left, e.g. for "..".
//
//	"My cool movie.mov"  -> "My_cool_movie.mov"
//	"../../../etc/passwd" -> "etc_passwd"
func SanitizeName(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	ascii.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r > unicode.MaxASCII:
			continue
		case r == '/' || r == '\\':
			ascii.WriteByte(' ')
		default:
			ascii.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(ascii.String()), "_")

	var out strings.Builder
	out.Grow(len(joined))
	for _, r := range joined {
		if isSafeNameRune(r) {
			out.WriteRune(r)
		}
	}
	return strings.Trim(out.String(), "._")
}

func isSafeNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-':
		return true
	default:
		return false
	}
}
