// Package budget packs summary items into a fixed character budget.
//
// Every summarizer in lorekeeper follows the same rule: candidates are
// considered in rank order, each is measured by its serialized JSON size,
// and packing of a section stops at the first candidate that would not fit.
// Items are never truncated; they are either included whole or left out.
package budget

import (
	"encoding/json"
	"fmt"
)

// CharsPerToken converts token budgets to character budgets.
const CharsPerToken = 4

// Chars returns the character budget for a token budget.
func Chars(tokens int) int {
	return tokens * CharsPerToken
}

// Accumulator tracks how much of a character budget has been spent.
type Accumulator struct {
	limit int
	used  int
}

// New returns an accumulator with the given character limit.
func New(limit int) *Accumulator {
	return &Accumulator{limit: limit}
}

// Limit returns the character limit.
func (a *Accumulator) Limit() int { return a.limit }

// Used returns the characters spent so far.
func (a *Accumulator) Used() int { return a.used }

// Remaining returns the unspent characters, never negative.
func (a *Accumulator) Remaining() int {
	if a.used >= a.limit {
		return 0
	}
	return a.limit - a.used
}

// Reserve charges fixed overhead such as a header, whether or not it fits.
func (a *Accumulator) Reserve(n int) {
	a.used += n
}

// Open reports whether any budget is left.
func (a *Accumulator) Open() bool {
	return a.used < a.limit
}

// Fits reports whether a candidate of n characters would fit.
func (a *Accumulator) Fits(n int) bool {
	return a.used+n < a.limit
}

// Take spends n characters if they fit and reports whether it did.
func (a *Accumulator) Take(n int) bool {
	if !a.Fits(n) {
		return false
	}
	a.used += n
	return true
}

// TakeJSON spends the serialized size of v if it fits.
func (a *Accumulator) TakeJSON(v any) bool {
	return a.Take(Size(v))
}

// TakeElem spends the size v adds to a JSON array if it fits.
func (a *Accumulator) TakeElem(v any) bool {
	return a.Take(Elem(v))
}

// Size returns the length of v's JSON encoding.
func Size(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return len(fmt.Sprint(v))
	}
	return len(b)
}

// Elem returns the size v adds as an element of a JSON array or object,
// separator included.
func Elem(v any) int {
	return Size(v) + 1
}

// KeyOverhead is what opening a member `"key":[]` adds to a JSON object,
// separator included.
func KeyOverhead(key string) int {
	return Elem(key) + 3
}

// Fill returns the longest prefix of candidates that fits, spending budget
// for each included item. It stops at the first candidate that does not fit.
func Fill[T any](a *Accumulator, candidates []T) []T {
	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if !a.Open() || !a.TakeElem(c) {
			break
		}
		out = append(out, c)
	}
	return out
}

// FillGroups packs keyed lists the way they serialize as a JSON object of
// arrays, visiting groups in keys order. A group is opened only when its key
// and first item fit together; within a group packing stops at the first
// item that does not fit and moves on to the next group.
func FillGroups[T any](a *Accumulator, keys []string, groups map[string][]T) map[string][]T {
	out := map[string][]T{}
	for _, k := range keys {
		items := groups[k]
		if len(items) == 0 {
			continue
		}
		if !a.Open() {
			break
		}
		if !a.Take(KeyOverhead(k) + Elem(items[0])) {
			continue
		}
		kept := []T{items[0]}
		for _, it := range items[1:] {
			if !a.TakeElem(it) {
				break
			}
			kept = append(kept, it)
		}
		out[k] = kept
	}
	return out
}
