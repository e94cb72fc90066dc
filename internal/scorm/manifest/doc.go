// Package manifest parses SCORM package manifests into a compact element
// tree and resolves the relative path of the package's launch document.
//
// Three manifest dialects are understood: the SCORM 1.1 course structure
// file (CSF.xml) and the IMS content packaging manifest (imsmanifest.xml)
// as written for SCORM 1.2 and SCORM 2004. Resolution never fails loudly:
// malformed input and manifests without a discoverable entry point both
// produce an empty result.
package manifest
