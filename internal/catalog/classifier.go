package catalog

import "sort"

// SpaceChange describes how an edit moves a product's variant space. Exactly
// one of the four concrete types is returned by Classify; callers switch on
// the concrete type and the compiler keeps the handling exhaustive.
type SpaceChange interface {
	isSpaceChange()
}

// NoSpaceChange means the old and new signature sets are identical. Variant
// identities are preserved and only scalar fields may move.
type NoSpaceChange struct{}

// SpaceExpands means every existing signature survives and new ones appear.
type SpaceExpands struct {
	Added []Signature
}

// SpaceContracts means no new signatures appear and some existing ones vanish.
type SpaceContracts struct {
	Removed []Signature
}

// SpaceMixed means signatures both appear and vanish in the same edit.
type SpaceMixed struct {
	Added   []Signature
	Removed []Signature
}

func (NoSpaceChange) isSpaceChange()  {}
func (SpaceExpands) isSpaceChange()   {}
func (SpaceContracts) isSpaceChange() {}
func (SpaceMixed) isSpaceChange()     {}

// Classify compares the stored signature set against the incoming one. A
// product with no variants before and after the edit classifies as
// NoSpaceChange.
func Classify(old, incoming map[Signature]struct{}) SpaceChange {
	var removed, added []Signature
	for sig := range old {
		if _, ok := incoming[sig]; !ok {
			removed = append(removed, sig)
		}
	}
	for sig := range incoming {
		if _, ok := old[sig]; !ok {
			added = append(added, sig)
		}
	}
	sortSignatures(removed)
	sortSignatures(added)

	switch {
	case len(removed) == 0 && len(added) == 0:
		return NoSpaceChange{}
	case len(removed) == 0:
		return SpaceExpands{Added: added}
	case len(added) == 0:
		return SpaceContracts{Removed: removed}
	default:
		return SpaceMixed{Added: added, Removed: removed}
	}
}

func sortSignatures(sigs []Signature) {
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
}
