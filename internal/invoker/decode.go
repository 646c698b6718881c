package invoker

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts captured process output to text without ever failing.
// Output is treated as UTF-8 unless it starts with a byte order mark, in which case
// the marked encoding (UTF-16 from Windows tools, typically) is used. Invalid
// sequences become U+FFFD.
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
