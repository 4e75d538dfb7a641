package store

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/corvusdb/corvus/pkg/model"
)

// pairBucket holds the sorted, deduplicated third-position ids for one
// (a, b) key pair of a two-column secondary index.
type pairBucket struct {
	a, b model.ID
	vals []model.ID
}

// pairIndex is a two-column secondary index: it maps a pair of ids to
// the sorted list of ids at the remaining position. Keys are hashed with
// xxh3 into a bucket table (collision-chained, since xxh3 is a 64-bit
// non-cryptographic hash and collisions, while rare, are possible); a
// parallel byFirst map groups known second-column values per first
// column so that single-bound-position queries ("iterate the index
// keyed on that position") do not require a full scan.
//
// This rehomes the teacher's term-hashing dependency (xxh3) from
// per-term storage keys onto this store's own two-column index buckets.
type pairIndex struct {
	buckets map[uint64][]*pairBucket
	byFirst map[model.ID]map[model.ID]bool
}

func newPairIndex() *pairIndex {
	return &pairIndex{
		buckets: make(map[uint64][]*pairBucket),
		byFirst: make(map[model.ID]map[model.ID]bool),
	}
}

func bucketHash(a, b model.ID) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(a))
	binary.BigEndian.PutUint32(buf[4:8], uint32(b))
	return xxh3.Hash(buf[:])
}

func (idx *pairIndex) find(a, b model.ID) *pairBucket {
	h := bucketHash(a, b)
	for _, bucket := range idx.buckets[h] {
		if bucket.a == a && bucket.b == b {
			return bucket
		}
	}
	return nil
}

// insert adds c to the (a, b) bucket, keeping vals sorted and
// deduplicated. It reports whether c was newly added.
func (idx *pairIndex) insert(a, b, c model.ID) bool {
	if bucket := idx.find(a, b); bucket != nil {
		return insertSortedUnique(bucket, c)
	}

	h := bucketHash(a, b)
	idx.buckets[h] = append(idx.buckets[h], &pairBucket{a: a, b: b, vals: []model.ID{c}})

	if idx.byFirst[a] == nil {
		idx.byFirst[a] = make(map[model.ID]bool)
	}
	idx.byFirst[a][b] = true
	return true
}

func insertSortedUnique(bucket *pairBucket, c model.ID) bool {
	pos := sort.Search(len(bucket.vals), func(i int) bool { return bucket.vals[i] >= c })
	if pos < len(bucket.vals) && bucket.vals[pos] == c {
		return false
	}
	bucket.vals = append(bucket.vals, 0)
	copy(bucket.vals[pos+1:], bucket.vals[pos:])
	bucket.vals[pos] = c
	return true
}

// delete removes c from the (a, b) bucket, reporting whether it was
// present. Empty buckets are pruned from both the hash table and
// byFirst so single-bound iteration never yields stale (a, b) pairs.
func (idx *pairIndex) delete(a, b, c model.ID) bool {
	bucket := idx.find(a, b)
	if bucket == nil {
		return false
	}
	pos := sort.Search(len(bucket.vals), func(i int) bool { return bucket.vals[i] >= c })
	if pos >= len(bucket.vals) || bucket.vals[pos] != c {
		return false
	}
	bucket.vals = append(bucket.vals[:pos], bucket.vals[pos+1:]...)
	if len(bucket.vals) == 0 {
		idx.removeBucket(a, b)
	}
	return true
}

func (idx *pairIndex) removeBucket(a, b model.ID) {
	h := bucketHash(a, b)
	chain := idx.buckets[h]
	for i, bucket := range chain {
		if bucket.a == a && bucket.b == b {
			idx.buckets[h] = append(chain[:i], chain[i+1:]...)
			if len(idx.buckets[h]) == 0 {
				delete(idx.buckets, h)
			}
			break
		}
	}
	if set, ok := idx.byFirst[a]; ok {
		delete(set, b)
		if len(set) == 0 {
			delete(idx.byFirst, a)
		}
	}
}

// lookup returns the (copy of the) third-position values for (a, b),
// or nil if the pair is not present.
func (idx *pairIndex) lookup(a, b model.ID) []model.ID {
	bucket := idx.find(a, b)
	if bucket == nil {
		return nil
	}
	out := make([]model.ID, len(bucket.vals))
	copy(out, bucket.vals)
	return out
}

// scanFirst iterates every (b, c) pair known for first-column value a,
// serving single-bound-position queries.
func (idx *pairIndex) scanFirst(a model.ID) [][2]model.ID {
	var out [][2]model.ID
	bs := make([]model.ID, 0, len(idx.byFirst[a]))
	for b := range idx.byFirst[a] {
		bs = append(bs, b)
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for _, b := range bs {
		bucket := idx.find(a, b)
		if bucket == nil {
			continue
		}
		for _, c := range bucket.vals {
			out = append(out, [2]model.ID{b, c})
		}
	}
	return out
}

// distinctFirstCount returns the number of distinct first-column values
// known to the index. Statistics does not call it; its per-predicate
// counts go through distinctFirstCount2.
func (idx *pairIndex) distinctFirstCount() int {
	return len(idx.byFirst)
}
