package monitor

import (
	"net/url"
	"strings"
)

// DecodeURI converts a wallpaper setting value into a filesystem path.
// "file://" URIs are percent-decoded; anything else is returned unchanged.
func DecodeURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return uri
	}
	if after, ok := strings.CutPrefix(rest, "localhost/"); ok {
		rest = "/" + after
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return rest
	}
	return decoded
}

// EncodeURI converts an absolute path into a file URI.
func EncodeURI(path string) string {
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}
