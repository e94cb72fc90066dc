package resource

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

type Kind int

const (
	KindLocal Kind = iota
	KindHTTP
	KindGCS
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindGCS:
		return "gcs"
	default:
		return "local"
	}
}

// KindOf classifies a location by its scheme prefix. The match is case
// sensitive like the rest of the pipeline: "HTTP://" is a local path.
func KindOf(p string) Kind {
	switch {
	case strings.HasPrefix(p, "http://"), strings.HasPrefix(p, "https://"):
		return KindHTTP
	case strings.HasPrefix(p, "gs://"):
		return KindGCS
	default:
		return KindLocal
	}
}

func IsRemote(p string) bool {
	return KindOf(p) != KindLocal
}

// Join appends a relative name to a package root without disturbing the
// scheme of remote roots.
func Join(root, name string) string {
	name = strings.TrimLeft(name, "/")
	if KindOf(root) == KindLocal {
		return filepath.Join(root, filepath.FromSlash(name))
	}
	return strings.TrimRight(root, "/") + "/" + path.Clean(name)
}

// splitObjectPath turns gs://bucket/a/b into ("bucket", "a/b").
func splitObjectPath(p string) (string, string, error) {
	rest := strings.TrimPrefix(p, "gs://")
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid object path %q", p)
	}
	return bucket, object, nil
}
