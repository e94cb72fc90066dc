// Package bridge relays SCORM run-time API calls between content and a host.
//
// The content half (Content, and the JavaScript produced by Script) answers
// every call locally and forwards it as a Message. The host half (Handle)
// decodes messages and dispatches them to an API implementation. Neither
// half waits for the other.
package bridge
