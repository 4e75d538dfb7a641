// Package dict implements the bidirectional string<->id interning table
// shared by every other component: the dictionary.
package dict

import (
	"sync"
)

// ID is a term id assigned by the dictionary. Id 0 is reserved and never
// returned by Encode; it means "unknown" wherever it appears in a binding.
type ID uint32

// Unknown is the reserved zero id.
const Unknown ID = 0

// Dictionary interns strings to monotonically increasing ids and decodes
// ids back to strings. It is safe for concurrent use: encoding is treated
// as the single-writer operation, decoding as the multi-reader operation,
// both guarded by the same RWMutex.
type Dictionary struct {
	mu      sync.RWMutex
	strToID map[string]ID
	idToStr map[ID]string
	nextID  ID
}

// New creates an empty dictionary. Id 1 is the first id handed out.
func New() *Dictionary {
	return &Dictionary{
		strToID: make(map[string]ID),
		idToStr: make(map[ID]string),
		nextID:  1,
	}
}

// Encode interns str, returning its id. Encoding the same string twice
// always returns the same id (read-through, idempotent): first sighting
// assigns nextID, then increments it.
func (d *Dictionary) Encode(str string) ID {
	d.mu.RLock()
	if id, ok := d.strToID[str]; ok {
		d.mu.RUnlock()
		return id
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-check under the write lock: another writer may have interned
	// str while we upgraded from a read lock.
	if id, ok := d.strToID[str]; ok {
		return id
	}

	id := d.nextID
	d.nextID++
	d.strToID[str] = id
	d.idToStr[id] = str
	return id
}

// Decode returns the string str was assigned id for, or false if id is
// unknown to this dictionary.
func (d *Dictionary) Decode(id ID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	str, ok := d.idToStr[id]
	return str, ok
}

// Lookup returns the id already assigned to str without interning it,
// or false if str has never been encoded.
func (d *Dictionary) Lookup(str string) (ID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.strToID[str]
	return id, ok
}

// Len returns the number of distinct strings interned so far.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.strToID)
}

// Merge folds other's entries into d. Merge is idempotent and preserves
// d's existing ids: a string already known to d keeps d's id even if
// other assigned it a different one. Strings known only to other are
// assigned fresh ids in d via the normal Encode path, so repeated merges
// of the same other never change d's ids once assigned.
func (d *Dictionary) Merge(other *Dictionary) {
	other.mu.RLock()
	strs := make([]string, 0, len(other.strToID))
	for s := range other.strToID {
		strs = append(strs, s)
	}
	other.mu.RUnlock()

	for _, s := range strs {
		d.Encode(s)
	}
}

// Placeholder returns the deterministic synthetic id used by the rule
// reasoner (spec §4.I, §9) when a conclusion's object variable is not
// bound by any premise. The same (ruleName, varName) pair always yields
// the same id across repeated materialize() calls, because the lexical
// form itself is deterministic and Encode is idempotent.
func (d *Dictionary) Placeholder(ruleName, varName string) ID {
	return d.Encode("_:placeholder-" + ruleName + "-" + varName)
}
