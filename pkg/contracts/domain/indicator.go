package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDuplicateRecord is returned when an indicator table would hold two
// records for the same (state, year) key.
var ErrDuplicateRecord = errors.New("duplicate indicator record")

// Key identifies one observation: a state in a given year.
type Key struct {
	State string `json:"state" validate:"required"`
	Year  int    `json:"year" validate:"required,min=1000,max=9999"`
}

// Less orders keys by state, then year.
func (k Key) Less(other Key) bool {
	if k.State != other.State {
		return k.State < other.State
	}
	return k.Year < other.Year
}

// String renders the key as "State/Year".
func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.State, k.Year)
}

// SortKeys sorts keys in place by state, then year.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// IndicatorRecord is a single value of one indicator. A NaN value marks a
// cell that was present in the source but empty.
type IndicatorRecord struct {
	Key
	Value float64 `json:"value"`
}

// IsMissing reports whether the record carries no usable value.
func (r IndicatorRecord) IsMissing() bool {
	return math.IsNaN(r.Value)
}

// IndicatorTable holds every record of one indicator. It is immutable once
// built; accessors hand out copies.
type IndicatorTable struct {
	name    string
	source  string
	records []IndicatorRecord
	index   map[Key]int
}

// NewIndicatorTable builds a table from records, sorted by key. Two records
// for the same key yield ErrDuplicateRecord.
func NewIndicatorTable(name, source string, records []IndicatorRecord) (*IndicatorTable, error) {
	sorted := make([]IndicatorRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key.Less(sorted[j].Key) })

	index := make(map[Key]int, len(sorted))
	for i, rec := range sorted {
		if _, exists := index[rec.Key]; exists {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateRecord, name, rec.Key)
		}
		index[rec.Key] = i
	}

	return &IndicatorTable{
		name:    name,
		source:  source,
		records: sorted,
		index:   index,
	}, nil
}

// Name returns the indicator name.
func (t *IndicatorTable) Name() string { return t.name }

// Source returns the file or store the table was read from.
func (t *IndicatorTable) Source() string { return t.source }

// Len returns the number of records.
func (t *IndicatorTable) Len() int { return len(t.records) }

// Records returns a copy of the records in key order.
func (t *IndicatorTable) Records() []IndicatorRecord {
	out := make([]IndicatorRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Lookup returns the record for key.
func (t *IndicatorTable) Lookup(key Key) (IndicatorRecord, bool) {
	i, ok := t.index[key]
	if !ok {
		return IndicatorRecord{}, false
	}
	return t.records[i], true
}

// Has reports whether a record exists for key, missing value or not.
func (t *IndicatorTable) Has(key Key) bool {
	_, ok := t.index[key]
	return ok
}

// Years returns the distinct years present, ascending.
func (t *IndicatorTable) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, rec := range t.records {
		if !seen[rec.Year] {
			seen[rec.Year] = true
			years = append(years, rec.Year)
		}
	}
	sort.Ints(years)
	return years
}

// States returns the distinct states present, ascending.
func (t *IndicatorTable) States() []string {
	seen := make(map[string]bool)
	var states []string
	for _, rec := range t.records {
		if !seen[rec.State] {
			seen[rec.State] = true
			states = append(states, rec.State)
		}
	}
	sort.Strings(states)
	return states
}

// YearsFor returns the years recorded for one state, ascending.
func (t *IndicatorTable) YearsFor(state string) []int {
	var years []int
	for _, rec := range t.records {
		if rec.State == state {
			years = append(years, rec.Year)
		}
	}
	return years
}
