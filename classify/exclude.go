package classify

import (
	"github.com/cloudflare/ahocorasick"
)

// Exclusion is a compiled multi-pattern byte matcher used to discard
// classification records whose LCA string contains any of a set of
// substrings. A nil *Exclusion matches nothing (every LCA string passes).
type Exclusion struct {
	matcher *ahocorasick.Matcher
}

// NewExclusion compiles patterns into an Exclusion. An empty pattern list
// yields an Exclusion that matches nothing, equivalent to a nil *Exclusion.
func NewExclusion(patterns []string) *Exclusion {
	if len(patterns) == 0 {
		return nil
	}
	return &Exclusion{matcher: ahocorasick.NewStringMatcher(patterns)}
}

// MatchAny reports whether any compiled pattern occurs anywhere in s. It is
// the find_any-style early-exit query described in the design notes: the
// underlying matcher still produces the full match set, but callers only
// care whether it is non-empty.
func (e *Exclusion) MatchAny(s []byte) bool {
	if e == nil || e.matcher == nil {
		return false
	}
	return len(e.matcher.Match(s)) > 0
}
