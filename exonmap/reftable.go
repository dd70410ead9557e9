package exonmap

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
)

// ReferenceEntry is the per-chromosome record in a ReferenceTable.
type ReferenceEntry struct {
	Length int32
	RefID  int32
}

// ReferenceTable aggregates per-chromosome max projected length and assigns
// dense, reproducible reference IDs.
//
// RefID assignment order is ascending chromosome name, matching the
// source's use of a sorted (std::map-backed) table: that is what makes
// "the order the map iterates in" reproducible across runs, as spec.md's
// ReferenceEntry invariant requires. See DESIGN.md OQ-1.
type ReferenceTable struct {
	byName map[string]*ReferenceEntry
	names  []string // ascending, RefID order
}

// BuildReferenceTable walks transcriptNames (the canonical order from the
// transcript index) and merges each transcript's projected length into its
// chromosome's entry by maximum. It fails if any name is absent from m.
func BuildReferenceTable(m ExonMap, transcriptNames []string) (*ReferenceTable, error) {
	byName := make(map[string]*ReferenceEntry)
	for _, name := range transcriptNames {
		entry, ok := m[name]
		if !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("exonmap: transcript name could not be found in exon coordinate file: %s", name))
		}
		length := entry.ProjectedLength()
		ref, ok := byName[entry.Chromosome]
		if !ok {
			byName[entry.Chromosome] = &ReferenceEntry{Length: length}
		} else if length > ref.Length {
			ref.Length = length
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		byName[name].RefID = int32(i)
	}

	return &ReferenceTable{byName: byName, names: names}, nil
}

// Names returns chromosome names in RefID order.
func (t *ReferenceTable) Names() []string {
	return t.names
}

// Len returns the number of chromosomes.
func (t *ReferenceTable) Len() int {
	return len(t.names)
}

// Lookup returns the entry for chromosome name, or nil if absent.
func (t *ReferenceTable) Lookup(name string) *ReferenceEntry {
	return t.byName[name]
}
