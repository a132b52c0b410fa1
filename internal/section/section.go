package section

import "strings"

const separator = "/"

// Extract вычисляет секцию по хосту и первому сегменту пути.
//
//	""                 -> host
//	"/"                -> host + "/"
//	"/pages/create"    -> host + "/pages"
//	"//pages"          -> host + "/"
func Extract(host, path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return host
	}
	path = strings.TrimPrefix(path, separator)
	first, _, _ := strings.Cut(path, separator)
	return host + separator + first
}
