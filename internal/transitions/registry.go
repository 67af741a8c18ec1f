package transitions

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Kind names an xfade transition curve
type Kind string

// Supported transitions
const (
	Fade        Kind = "fade"
	Dissolve    Kind = "dissolve"
	CircleOpen  Kind = "circleopen"
	CircleClose Kind = "circleclose"
	FadeBlack   Kind = "fadeblack"
	SmoothLeft  Kind = "smoothleft"
	SmoothRight Kind = "smoothright"
	SmoothUp    Kind = "smoothup"
	SmoothDown  Kind = "smoothdown"
	WipeLeft    Kind = "wipeleft"
	WipeRight   Kind = "wiperight"
	WipeUp      Kind = "wipeup"
	WipeDown    Kind = "wipedown"
	SlideLeft   Kind = "slideleft"
	SlideRight  Kind = "slideright"
	SlideUp     Kind = "slideup"
	SlideDown   Kind = "slidedown"
)

// All lists every supported transition in a stable order
var All = []Kind{
	Fade, Dissolve, CircleOpen, CircleClose, FadeBlack,
	SmoothLeft, SmoothRight, SmoothUp, SmoothDown,
	WipeLeft, WipeRight, WipeUp, WipeDown,
	SlideLeft, SlideRight, SlideUp, SlideDown,
}

// Registry is the pool a merge draws its transition from
type Registry struct {
	kinds []Kind
}

// Default returns a registry holding every supported transition
func Default() *Registry {
	return NewRegistry(All...)
}

// NewRegistry creates a registry with the given transitions
func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{}
	for _, k := range kinds {
		r.Register(k)
	}
	return r
}

// FromNames builds a registry from configured names. An empty list yields
// the default registry.
func FromNames(names []string) (*Registry, error) {
	if len(names) == 0 {
		return Default(), nil
	}
	r := &Registry{}
	for _, name := range names {
		k, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown transition %q", name)
		}
		r.Register(k)
	}
	return r, nil
}

// Lookup resolves a transition by name, ignoring case
func Lookup(name string) (Kind, bool) {
	want := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range All {
		if k == want {
			return k, true
		}
	}
	return "", false
}

// Register adds a transition to the pool; duplicates are ignored so every
// entry keeps the same probability.
func (r *Registry) Register(k Kind) {
	if r.Has(k) {
		return
	}
	r.kinds = append(r.kinds, k)
}

// Has reports whether k is in the pool
func (r *Registry) Has(k Kind) bool {
	for _, existing := range r.kinds {
		if existing == k {
			return true
		}
	}
	return false
}

// List returns all pooled transitions
func (r *Registry) List() []Kind {
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Len returns the pool size
func (r *Registry) Len() int {
	return len(r.kinds)
}

// Pick draws a transition uniformly at random from the pool
func (r *Registry) Pick(rng *rand.Rand) Kind {
	if len(r.kinds) == 0 {
		return Fade
	}
	return r.kinds[rng.IntN(len(r.kinds))]
}
