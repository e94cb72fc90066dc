package manifest

import "strings"

// Dialect selects which traversal rule applies to a manifest.
type Dialect string

const (
	SCORM11   Dialect = "SCORM 1.1"
	SCORM12   Dialect = "SCORM 1.2"
	SCORM2004 Dialect = "SCORM 2004"
)

// Is2004 reports whether the label names any SCORM 2004 edition.
func (d Dialect) Is2004() bool {
	return strings.Contains(string(d), string(SCORM2004))
}

const (
	nsADLCP13   = "adlcp_v1p3"
	nsADLCP12   = "adlcp_rootv1p2"
	nsIMSSS     = "imsss"
	nsADLSeq    = "adlseq_v1p3"
	nsADLNav    = "adlnav_v1p3"
	nsIMSCPRoot = "imscp_rootv1p1p2"
)

// Sniff decides whether an imsmanifest.xml document is a SCORM 2004 or a
// SCORM 1.2 manifest. The metadata schemaversion wins when present; otherwise
// the namespaces declared or used by the document decide. Anything
// unrecognizable, including unparsable text, is reported as SCORM 1.2.
func Sniff(xmlText string) Dialect {
	doc, err := Parse(xmlText)
	if err != nil {
		return SCORM12
	}
	return SniffTree(doc)
}

func SniffTree(doc *Node) Dialect {
	root := doc.First("manifest")
	if root == nil {
		return SCORM12
	}
	for _, sv := range root.Select("metadata", "schemaversion") {
		v, ok := sv.Value()
		if !ok {
			continue
		}
		switch {
		case strings.Contains(v, "2004"):
			label := string(SCORM2004)
			if edition := strings.TrimSpace(v[strings.Index(v, "2004")+len("2004"):]); edition != "" {
				label += " " + edition
			}
			return Dialect(label)
		case strings.Contains(v, "CAM 1.3"):
			return SCORM2004
		case strings.HasPrefix(v, "1.2"):
			return SCORM12
		}
	}

	var seen2004, seen12 bool
	visit(root, func(n *Node) {
		for k, v := range n.Attrs {
			if k != "xmlns" && !strings.HasPrefix(k, "xmlns:") {
				continue
			}
			switch {
			case strings.Contains(v, nsADLCP13), strings.Contains(v, nsIMSSS),
				strings.Contains(v, nsADLSeq), strings.Contains(v, nsADLNav):
				seen2004 = true
			case strings.Contains(v, nsADLCP12), strings.Contains(v, nsIMSCPRoot):
				seen12 = true
			}
		}
		if strings.Contains(n.Namespace, nsIMSSS) || strings.Contains(n.Namespace, nsADLSeq) {
			seen2004 = true
		}
	})
	if seen2004 && !seen12 {
		return SCORM2004
	}
	return SCORM12
}

func visit(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		visit(c, fn)
	}
}
