package launch

import (
	"net/url"
	"strings"

	"github.com/yungbote/scormbridge/internal/scorm/manifest"
)

// Descriptor is the result of a successful launch resolution. FileName is
// always relative to BasePath.
type Descriptor struct {
	BasePath string `json:"base_path"`
	FileName string `json:"file_name"`
}

// URI is the location the hosting shell renders.
func (d Descriptor) URI() string {
	return d.BasePath + "/" + d.FileName
}

type Strategy string

const (
	StrategyManifest   Strategy = "manifest"
	StrategyConvention Strategy = "convention"
)

// Resolution is a Descriptor plus how it was found.
type Resolution struct {
	Descriptor
	Strategy Strategy         `json:"strategy"`
	Manifest string           `json:"manifest,omitempty"`
	Dialect  manifest.Dialect `json:"dialect,omitempty"`
}

// normalizeRoot drops trailing separators so joined paths never double up.
func normalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	trimmed := strings.TrimRight(root, "/")
	if trimmed == "" && root != "" {
		return "/"
	}
	return trimmed
}

// relativeEntry turns a manifest href into a path relative to the package
// root. Absolute URLs are refused; query strings and fragments are kept.
func relativeEntry(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if isAbsoluteRef(href) {
		return "", false
	}
	href = strings.TrimLeft(href, "/")
	for strings.HasPrefix(href, "./") {
		href = strings.TrimPrefix(href, "./")
	}
	return href, href != ""
}

func isAbsoluteRef(href string) bool {
	if strings.HasPrefix(href, "//") {
		return true
	}
	u, err := url.Parse(href)
	if err != nil {
		path, _, _ := strings.Cut(href, "?")
		path, _, _ = strings.Cut(path, "#")
		return strings.Contains(path, "://")
	}
	return u.Scheme != "" || u.Host != ""
}
