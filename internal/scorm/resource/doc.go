// Package resource answers two questions about a package location: does a
// file exist there, and what text does it hold. Locations are local paths,
// http(s) URLs or gs:// object paths; KindOf is the single predicate that
// tells them apart for both operations.
package resource
