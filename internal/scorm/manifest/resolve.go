package manifest

import (
	"fmt"

	"github.com/yungbote/scormbridge/internal/platform/logger"
)

// Resolver finds the launch document named by a manifest.
type Resolver struct {
	log *logger.Logger
}

func NewResolver(log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{log: log.With("service", "ManifestResolver")}
}

var nopResolver = NewResolver(nil)

// Resolve is Resolver.Resolve without diagnostics.
func Resolve(xmlText string, dialect Dialect) (string, bool) {
	return nopResolver.Resolve(xmlText, dialect)
}

// Resolve returns the launch path declared by xmlText under the given
// dialect. It reports false when the manifest names no entry point or cannot
// be parsed; it never panics.
func (r *Resolver) Resolve(xmlText string, dialect Dialect) (href string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Error parsing SCORM manifest", "dialect", string(dialect), "panic", fmt.Sprint(rec))
			href, ok = "", false
		}
	}()

	doc, err := Parse(xmlText)
	if err != nil {
		r.log.Error("Error parsing SCORM manifest", "dialect", string(dialect), "error", err)
		return "", false
	}
	return r.ResolveTree(doc, dialect)
}

// ResolveTree applies the resolution rules to an already parsed document.
func (r *Resolver) ResolveTree(doc *Node, dialect Dialect) (string, bool) {
	resources := doc.Select("manifest", "resources", "resource")

	var href string
	switch {
	case dialect == SCORM12 && len(resources) > 0:
		r.log.Debug("SCORM 1.2 manifest detected", "resources", len(resources))
		href = firstHref(resources)
	case dialect == SCORM11 && hasCSFLaunch(doc):
		r.log.Debug("SCORM 1.1 course structure detected")
		href = csfLaunch(doc)
	case dialect.Is2004() && len(doc.Select("manifest", "organizations", "organization")) > 0:
		r.log.Debug("SCORM 2004 manifest detected", "dialect", string(dialect))
		href = organizationLaunch(doc, resources)
	}

	if href == "" && len(resources) > 0 {
		r.log.Debug("Searching for generic SCORM launch file", "resources", len(resources))
		href = firstHref(resources)
	}

	if href == "" {
		r.log.Warn("No SCORM launch file found in manifest", "dialect", string(dialect))
		return "", false
	}
	r.log.Info("SCORM launch file found", "href", href, "dialect", string(dialect))
	return href, true
}

func firstHref(resources []*Node) string {
	for _, res := range resources {
		if href, ok := res.Attr("href"); ok {
			return href
		}
	}
	return ""
}

func hasCSFLaunch(doc *Node) bool {
	return len(doc.Select("content", "block", "sco", "launch", "location")) > 0
}

// csfLaunch reads the launch location of the first block that carries a sco.
func csfLaunch(doc *Node) string {
	for _, block := range doc.Select("content", "block") {
		sco := block.First("sco")
		if sco == nil {
			continue
		}
		loc, _ := sco.First("launch").First("location").Value()
		return loc
	}
	return ""
}

// organizationLaunch walks organizations and their items in document order
// and returns the href of the first resource an item references. Scanning
// stops with the first organization that produces a match.
func organizationLaunch(doc *Node, resources []*Node) string {
	byID := make(map[string]*Node, len(resources))
	for _, res := range resources {
		if id, ok := res.Attr("identifier"); ok {
			if _, dup := byID[id]; !dup {
				byID[id] = res
			}
		}
	}
	for _, org := range doc.Select("manifest", "organizations", "organization") {
		for _, item := range org.All("item") {
			ref, ok := item.Attr("identifierref")
			if !ok {
				continue
			}
			if href, ok := byID[ref].Attr("href"); ok {
				return href
			}
		}
	}
	return ""
}
