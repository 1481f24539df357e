// Package speech provides HTTP clients for the external transcription and
// synthesis services. Both services are opaque: audio or text goes out,
// text or audio comes back, and failures degrade to empty results at the
// pipeline boundary.
package speech
