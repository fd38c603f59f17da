// Package truth declares the truth-value and evidential-stamp types the
// control core carries but does not compute with. The truth-value algebra
// itself (revision, deduction, the rule table's numeric combinators) is
// out of scope for this core; this package only gives the core enough
// structure to read expectations off a belief and to merge evidential
// stamps when building a derivation context.
package truth

// Value is a NAL truth-value: frequency and confidence, both in [0,1].
// Expectation is the scalar the core reads when ranking beliefs or
// deriving a premise's budget; its formula is part of the (out-of-scope)
// truth algebra, but the core needs the value, so it is computed here from
// the two components the core does own.
type Value struct {
	Frequency  float64
	Confidence float64
}

// Expectation returns the truth-value's expectation, the scalar the
// control core uses wherever it needs "how confident is this belief"
// without itself implementing revision or deduction.
func (v Value) Expectation() float64 {
	return v.Confidence*(v.Frequency-0.5) + 0.5
}

// Equal reports whether two truth-values carry the same frequency and
// confidence — used by belief-table duplicate rejection.
func (v Value) Equal(other Value) bool {
	return v.Frequency == other.Frequency && v.Confidence == other.Confidence
}

// BaseEntry is one evidential-base entry: the reasoner that produced it
// and a monotonic per-reasoner serial number.
type BaseEntry struct {
	ReasonerID uint64
	Serial     uint64
}

// NewStampSerial issues a fresh BaseEntry for reasonerID, advancing the
// supplied counter. The counter is owned by the caller (the Reasoner) so
// that serial issuance stays deterministic across a snapshot round-trip.
func NewStampSerial(reasonerID uint64, counter *uint64) BaseEntry {
	entry := BaseEntry{ReasonerID: reasonerID, Serial: *counter}
	*counter++
	return entry
}

// Stamp is the evidential trail attached to a sentence: when it was
// created, when it is said to hold (occurrence time, which may differ from
// creation time for non-eternal judgments), and the base of evidential
// serials that produced it.
type Stamp struct {
	CreationTime   int64
	OccurrenceTime int64
	Eternal        bool
	Base           []BaseEntry
}

// Eternalize returns a copy of the stamp retimed to occur at now with the
// same evidential base. Used when copying a task's stamp into a derivation
// context for a virtual premise (no belief to merge with).
func (s Stamp) Eternalize(now int64) Stamp {
	copied := Stamp{
		CreationTime:   s.CreationTime,
		OccurrenceTime: now,
		Eternal:        s.Eternal,
		Base:           append([]BaseEntry(nil), s.Base...),
	}
	return copied
}

// Overlaps reports whether two stamps share any evidential-base entry —
// the cycle-detection test the rule table's callers use to reject
// circular derivations.
func (s Stamp) Overlaps(other Stamp) bool {
	seen := make(map[BaseEntry]struct{}, len(s.Base))
	for _, e := range s.Base {
		seen[e] = struct{}{}
	}
	for _, e := range other.Base {
		if _, ok := seen[e]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether two stamps carry exactly the same evidential base
// (as a set, order-independent) — used alongside Value.Equal by
// belief-table duplicate rejection to recognize a belief that has already
// been recorded under the same evidence.
func (s Stamp) Equal(other Stamp) bool {
	if len(s.Base) != len(other.Base) {
		return false
	}
	seen := make(map[BaseEntry]int, len(s.Base))
	for _, e := range s.Base {
		seen[e]++
	}
	for _, e := range other.Base {
		if seen[e] == 0 {
			return false
		}
		seen[e]--
	}
	return true
}

// Merge combines two stamps' evidential bases into a new stamp occurring
// at now. The merged base is the union of both bases, truncated to
// maxBaseLength entries (oldest entries dropped first) to keep the trail
// bounded — mirroring how OpenNARS caps its evidential base length.
func Merge(a, b Stamp, now int64, maxBaseLength int) Stamp {
	merged := make([]BaseEntry, 0, len(a.Base)+len(b.Base))
	seen := make(map[BaseEntry]struct{}, len(a.Base)+len(b.Base))

	appendUnique := func(entries []BaseEntry) {
		for _, e := range entries {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			merged = append(merged, e)
		}
	}
	appendUnique(a.Base)
	appendUnique(b.Base)

	if maxBaseLength > 0 && len(merged) > maxBaseLength {
		merged = merged[len(merged)-maxBaseLength:]
	}

	return Stamp{
		CreationTime:   now,
		OccurrenceTime: now,
		Eternal:        a.Eternal && b.Eternal,
		Base:           merged,
	}
}
