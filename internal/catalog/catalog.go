package catalog

import (
	"fmt"
	"sort"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"
)

// InvalidPartitionError reports a record whose category or type ordinal
// falls outside the enumeration the index was built for. Callers are
// expected to validate records before a rebuild, so hitting this error
// is a programming mistake, not a user-facing condition.
type InvalidPartitionError struct {
	Deck     string
	Category int
	Type     int
}

func (e *InvalidPartitionError) Error() string {
	return fmt.Sprintf("deck %q has invalid partition (category %d, type %d)", e.Deck, e.Category, e.Type)
}

// IndexOutOfRangeError reports a positional lookup outside the index
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for catalog of %d decks", e.Index, e.Len)
}

// Index is the sorted, partitioned view of all known decks. Records are
// totally ordered by (category, type, name) ascending and bucketed per
// (category, type) partition, so range queries resolve to a contiguous
// slice in O(1).
type Index struct {
	records []deck.Record
	counts  []int
	offsets []int
	typeCnt int
	catCnt  int
}

// Rebuild constructs a new index from records in arbitrary order.
// It is all-or-nothing: if any record's category or type ordinal is out
// of range for the supplied counts, no index is built and the caller's
// previous index stays valid.
func Rebuild(records []deck.Record, categoryCount, typeCount int) (*Index, error) {
	for _, r := range records {
		if r.Category < 0 || r.Category >= categoryCount || r.Type < 0 || r.Type >= typeCount {
			return nil, &InvalidPartitionError{Deck: r.Name, Category: r.Category, Type: r.Type}
		}
	}

	sorted := make([]deck.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	counts := make([]int, categoryCount*typeCount)
	for _, r := range sorted {
		counts[r.Category*typeCount+r.Type]++
	}

	// offsets[p] is the prefix sum of counts[0..p), with one extra
	// entry so offsets[len(counts)] == len(records).
	offsets := make([]int, len(counts)+1)
	for p, n := range counts {
		offsets[p+1] = offsets[p] + n
	}

	return &Index{
		records: sorted,
		counts:  counts,
		offsets: offsets,
		typeCnt: typeCount,
		catCnt:  categoryCount,
	}, nil
}

// less orders records by category, then type, then name ascending
func less(a, b deck.Record) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Name < b.Name
}

// Len returns the number of decks in the index
func (x *Index) Len() int {
	return len(x.records)
}

// CategoryCount returns the size of the category enumeration
func (x *Index) CategoryCount() int {
	return x.catCnt
}

// TypeCount returns the size of the type enumeration
func (x *Index) TypeCount() int {
	return x.typeCnt
}

// Lookup returns the record at a position in catalog order
func (x *Index) Lookup(i int) (deck.Record, error) {
	if i < 0 || i >= len(x.records) {
		return deck.Record{}, &IndexOutOfRangeError{Index: i, Len: len(x.records)}
	}
	return x.records[i], nil
}

// RangeForPartition returns the slice bounds of one (category, type)
// partition. Unknown partitions yield an empty range.
func (x *Index) RangeForPartition(category, typ int) (offset, length int) {
	if category < 0 || category >= x.catCnt || typ < 0 || typ >= x.typeCnt {
		return 0, 0
	}
	p := category*x.typeCnt + typ
	return x.offsets[p], x.counts[p]
}

// RangeForCategory returns the slice bounds covering every type of one
// category
func (x *Index) RangeForCategory(category int) (offset, length int) {
	if category < 0 || category >= x.catCnt {
		return 0, 0
	}
	first := category * x.typeCnt
	total := 0
	for t := 0; t < x.typeCnt; t++ {
		total += x.counts[first+t]
	}
	return x.offsets[first], total
}

// Records returns the decks in catalog order. The returned slice is a
// copy; mutating it does not affect the index.
func (x *Index) Records() []deck.Record {
	out := make([]deck.Record, len(x.records))
	copy(out, x.records)
	return out
}

// Counts returns a copy of the per-partition count table, indexed by
// category*typeCount+type
func (x *Index) Counts() []int {
	out := make([]int, len(x.counts))
	copy(out, x.counts)
	return out
}
