// Package push decodes the backend's state-push messages and keeps a websocket
// link open to receive them.
//
// Three message kinds exist, each a full replacement rather than a delta:
//
//	{"type":"ui","display":true}
//	{"type":"updateState","state":{"playing":true,"url":"...","volume":0.5}}
//	{"type":"favorites","favorites":{"<id>":{"nickname":"...","url":"..."}}}
//
// Decode is strict about the envelope (a JSON object with a string type) and
// lenient about content: partial states decode with presence flags, absent
// favorites decode as an empty snapshot. Anything it cannot interpret is a
// *MalformedMessageError, which Stream logs and skips. Unknown types decode
// successfully so the caller can log and ignore them.
package push
