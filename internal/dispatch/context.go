// Package dispatch decides which feature a page hosts and starts it.
//
// The page is only reachable through small capabilities: AnchorProvider
// answers whether an anchor element exists, Page accepts the terminal error
// notice. Document implements both over an HTML document; StaticAnchors is a
// fixed set for headless runs and tests.
package dispatch

import "fmt"

// Element ids marking the page role.
const (
	UploaderAnchor = "image-uploader"
	ViewerAnchor   = "image-viewer"
)

// Context is the page role detected for a run.
type Context int

const (
	Unknown Context = iota
	Uploader
	Viewer
)

func (c Context) String() string {
	switch c {
	case Unknown:
		return "unknown"
	case Uploader:
		return "uploader"
	case Viewer:
		return "viewer"
	default:
		return fmt.Sprintf("Context(%d)", int(c))
	}
}

// AnchorProvider reports which anchor elements the hosted page contains.
type AnchorProvider interface {
	HasAnchor(id string) bool
}

// Detect checks the uploader anchor first, then the viewer anchor. The first
// match wins, so a page carrying both is an uploader page.
func Detect(p AnchorProvider) Context {
	if p == nil {
		return Unknown
	}
	switch {
	case p.HasAnchor(UploaderAnchor):
		return Uploader
	case p.HasAnchor(ViewerAnchor):
		return Viewer
	default:
		return Unknown
	}
}

// StaticAnchors is an AnchorProvider over a fixed set of ids.
type StaticAnchors map[string]bool

// NewStaticAnchors builds a StaticAnchors from ids.
func NewStaticAnchors(ids ...string) StaticAnchors {
	s := make(StaticAnchors, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// HasAnchor implements AnchorProvider.
func (s StaticAnchors) HasAnchor(id string) bool { return s[id] }
