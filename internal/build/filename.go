package build

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

// DefaultHashLength is the digest prefix used by [hash] and [contenthash].
const DefaultHashLength = 20

var placeholder = regexp.MustCompile(`\[(name|ext|hash|contenthash)(?::(\d+))?\]`)

// ExpandFilename fills a name template. [name] is the asset or entry name,
// [ext] its extension including the dot, and [hash], [contenthash] the
// digest, optionally truncated with [hash:N].
func ExpandFilename(template, name, ext, digest string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		switch sub[1] {
		case "name":
			return name
		case "ext":
			return ext
		}
		n := DefaultHashLength
		if sub[2] != "" {
			if v, err := strconv.Atoi(sub[2]); err == nil && v > 0 {
				n = v
			}
		}
		if n > len(digest) {
			n = len(digest)
		}
		return digest[:n]
	})
}

// splitName splits a file path into its base name without extension and
// the extension.
func splitName(p string) (string, string) {
	base := path.Base(p)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}
