package qual

import "github.com/fqzcomp/qual/internal/fqzslice"

// SliceView describes the per-record layout of a flat quality-byte buffer:
// each record's starting offset and BAM-style flags. Compress consults it
// to find record boundaries and pairing information; Decompress needs no
// SliceView at all, since it recovers record lengths and REVERSE flags
// from the coded stream itself as it decodes.
type SliceView = fqzslice.View

// Record is one sequencing read's offset and flags within a SliceView.
type Record = fqzslice.Record

// Flag bits usable in Record.Flags.
const (
	FlagRead2   = fqzslice.FlagRead2
	FlagReverse = fqzslice.FlagReverse
)
