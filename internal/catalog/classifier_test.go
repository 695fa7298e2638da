package catalog

import (
	"fmt"
	"testing"
)

func sigSet(sigs ...Signature) map[Signature]struct{} {
	set := make(map[Signature]struct{}, len(sigs))
	for _, sig := range sigs {
		set[sig] = struct{}{}
	}
	return set
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		old  map[Signature]struct{}
		new  map[Signature]struct{}
		want SpaceChange
	}{
		{
			name: "identical sets",
			old:  sigSet("a", "b"),
			new:  sigSet("b", "a"),
			want: NoSpaceChange{},
		},
		{
			name: "both empty",
			old:  sigSet(),
			new:  sigSet(),
			want: NoSpaceChange{},
		},
		{
			name: "pure expansion",
			old:  sigSet("a"),
			new:  sigSet("a", "b", "c"),
			want: SpaceExpands{Added: []Signature{"b", "c"}},
		},
		{
			name: "expansion from empty",
			old:  sigSet(),
			new:  sigSet("a"),
			want: SpaceExpands{Added: []Signature{"a"}},
		},
		{
			name: "pure contraction",
			old:  sigSet("a", "b", "c"),
			new:  sigSet("b"),
			want: SpaceContracts{Removed: []Signature{"a", "c"}},
		},
		{
			name: "contraction to empty",
			old:  sigSet("a"),
			new:  sigSet(),
			want: SpaceContracts{Removed: []Signature{"a"}},
		},
		{
			name: "mixed",
			old:  sigSet("a", "b"),
			new:  sigSet("b", "c"),
			want: SpaceMixed{Added: []Signature{"c"}, Removed: []Signature{"a"}},
		},
		{
			name: "disjoint replacement",
			old:  sigSet("a"),
			new:  sigSet("b"),
			want: SpaceMixed{Added: []Signature{"b"}, Removed: []Signature{"a"}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tc.old, tc.new)
			if fmt.Sprintf("%#v", got) != fmt.Sprintf("%#v", tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

// Every (old, new) pair maps to exactly one regime, and the carried add and
// remove sets always match the raw set differences.
func TestClassifyPartitionsAllPairs(t *testing.T) {
	t.Parallel()

	universe := []Signature{"a", "b", "c"}
	subsets := make([]map[Signature]struct{}, 0, 8)
	for mask := 0; mask < 1<<len(universe); mask++ {
		set := make(map[Signature]struct{})
		for i, sig := range universe {
			if mask&(1<<i) != 0 {
				set[sig] = struct{}{}
			}
		}
		subsets = append(subsets, set)
	}

	for _, old := range subsets {
		for _, next := range subsets {
			var onlyOld, onlyNew int
			for sig := range old {
				if _, ok := next[sig]; !ok {
					onlyOld++
				}
			}
			for sig := range next {
				if _, ok := old[sig]; !ok {
					onlyNew++
				}
			}

			switch change := Classify(old, next).(type) {
			case NoSpaceChange:
				if onlyOld != 0 || onlyNew != 0 {
					t.Fatalf("no-change regime for old=%v new=%v", old, next)
				}
			case SpaceExpands:
				if onlyOld != 0 || onlyNew == 0 || len(change.Added) != onlyNew {
					t.Fatalf("expand regime mismatch for old=%v new=%v: %#v", old, next, change)
				}
			case SpaceContracts:
				if onlyOld == 0 || onlyNew != 0 || len(change.Removed) != onlyOld {
					t.Fatalf("contract regime mismatch for old=%v new=%v: %#v", old, next, change)
				}
			case SpaceMixed:
				if onlyOld == 0 || onlyNew == 0 || len(change.Added) != onlyNew || len(change.Removed) != onlyOld {
					t.Fatalf("mixed regime mismatch for old=%v new=%v: %#v", old, next, change)
				}
			default:
				t.Fatalf("unknown classification %#v", change)
			}
		}
	}
}
