// Package fqzslice defines the per-record metadata view the codec consumes
// from its caller: the CRAM slice's record lengths and flags, without any
// of the surrounding CRAM container machinery.
package fqzslice

// FlagRead2 marks a record as the second read of a pair (BAM_FREAD2 in the
// source, bit 7 of the low 16 bits of Flags).
const FlagRead2 = 1 << 7

// FlagReverse marks a record whose quality bytes should be reversed before
// coding and un-reversed after (BAM_FREVERSE, bit 4). The retrieved source
// stubs this constant to 0, permanently disabling the reverse pass; this
// port gives it its real BAM bit value so GFlagDoRev (version 3 streams)
// is actually exercised rather than dead code.
const FlagReverse = 1 << 4

// Record describes one sequencing read's position and flags within the
// flat quality buffer.
type Record struct {
	// QualOffset is the byte offset of this record's first quality value
	// in the flat buffer.
	QualOffset int

	// Len is the number of quality bytes in this record.
	Len int

	// Flags carries BAM-style flags in the low 16 bits (only FlagRead2 and
	// FlagReverse are consulted) and an optional per-record selector value in the high 16
	// bits, written by the tuner during auto-tuning and read back by the
	// encoder. Callers should zero the upper bits before calling Compress
	// unless supplying an explicit selector.
	Flags uint32
}

// Read2 reports whether this record is flagged as read 2 of a pair.
func (r Record) Read2() bool { return r.Flags&FlagRead2 != 0 }

// Reverse reports whether this record's quality bytes should be reversed
// before coding (and un-reversed after), under GFlagDoRev.
func (r Record) Reverse() bool { return r.Flags&FlagReverse != 0 }

// Selector extracts the per-record selector the tuner may have written (or
// the caller supplied) into the upper 16 bits of Flags.
func (r Record) Selector() uint32 { return r.Flags >> 16 }

// SetSelector overwrites the upper 16 bits of Flags with sel, preserving
// the low 16 bits.
func (r *Record) SetSelector(sel uint32) {
	r.Flags = (r.Flags & 0xffff) | (sel << 16)
}

// ClearSelector zeroes the upper 16 bits of Flags, undoing the tuner's
// scratch use of them once a block has been coded.
func (r *Record) ClearSelector() {
	r.Flags &= 0xffff
}

// View is the per-record metadata the codec consumes alongside the flat
// quality buffer: record boundaries and flags, with no other CRAM slice
// machinery exposed.
type View struct {
	Records []Record
}

// NumRecords reports the number of records in the view.
func (v *View) NumRecords() int { return len(v.Records) }

// QLens derives the per-record quality-byte length vector from neighbouring
// QualOffset values: for i < n-1, QLens[i] = offset[i+1]-offset[i]; the
// last record's length is inSize-offset[n-1]. This matches the source's
// qual_len derivation from s->crecs[i].qual rather than trusting Len
// directly, since extra QS records can make them differ.
func (v *View) QLens(inSize int) []uint32 {
	n := len(v.Records)
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		if i < n-1 {
			out[i] = uint32(v.Records[i+1].QualOffset - v.Records[i].QualOffset)
		} else {
			out[i] = uint32(inSize - v.Records[i].QualOffset)
		}
	}
	return out
}
