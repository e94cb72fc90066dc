// Package launch finds the document a SCORM package starts from.
//
// A package root is probed for imsmanifest.xml and CSF.xml at the same time.
// The IMS manifest wins when both exist. When no manifest names an entry
// point, a fixed list of conventional file names is tried in order.
package launch
