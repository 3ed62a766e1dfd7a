// Package fqzparam holds the fqzcomp-qual parameter block types and their
// bit-exact wire serialization: the global header, the selector-to-param
// table, and the per-parameter record (flags, table maps, and the doubly
// run-length-encoded qtab/ptab/dtab/qmap tables).
package fqzparam

import "fmt"

// QMax is the maximum quality alphabet size (0..255 after ASCII-33 removal,
// but the codec treats the full byte range).
const QMax = 256

// CtxSize is the size of the composite 16-bit context used to index the
// per-context quality model.
const CtxSize = 1 << 16

// Unused marks an entry of QMap that has no corresponding input symbol.
const Unused = int(^uint(0) >> 1) // math.MaxInt, mirrors C's INT_MAX

// Global flags (GFlags).
const (
	GFlagMultiParam uint8 = 1 << 0
	GFlagHaveStab   uint8 = 1 << 1
	GFlagDoRev      uint8 = 1 << 2
)

// Per-parameter flags (PFlags).
const (
	PFlagDoDedup  uint8 = 1 << 1
	PFlagDoLen    uint8 = 1 << 2
	PFlagDoSel    uint8 = 1 << 3
	PFlagHaveQMap uint8 = 1 << 4
	PFlagHavePTab uint8 = 1 << 5
	PFlagHaveDTab uint8 = 1 << 6
	PFlagHaveQTab uint8 = 1 << 7
)

// WireVersion is the only format number the decoder accepts.
const WireVersion = 5

// Param is a single parameter block: the context-bit layout, tables, and
// behavioural flags the encoder/decoder apply to one class of records.
type Param struct {
	Context uint16 // seed for `last` at the start of each record

	PFlags uint8

	MaxSym int // highest quality value seen; with StoreQMap, the packed symbol count
	NSym   int // distinct symbol count

	QBits, QShift, QLoc int
	PBits, PShift, PLoc int
	DBits, DShift, DLoc int
	SBits, SLoc         int

	QMap [256]int    // quality -> packed symbol, Unused if absent
	QTab [256]uint32 // quality -> quality-context contribution
	PTab [1024]uint32
	DTab [256]uint32

	QMask    uint32
	FirstLen bool
	FixedLen bool

	StoreQMap bool
	UseQTab   bool
	UsePTab   bool
	UseDTab   bool
	DoSel     bool
	DoDedup   bool

	// Not serialized: tuner control knobs consulted only while picking
	// parameters, carried here for symmetry with the source layout.
	DoR2 int
	DoQA int
}

// GParams is the set of global parameters plus one or more Param blocks.
type GParams struct {
	Vers   int
	GFlags uint8
	NParam int
	MaxSel int
	MaxSym int
	STab   [256]uint32
	P      []Param
}

// String renders a human-readable summary, mirroring the source's
// dump_params/dump_table/dump_map diagnostic output.
func (g *GParams) String() string {
	s := fmt.Sprintf("Global params = {\n\tvers\t%d\n\tgflags\t0x%02x\n\tnparam\t%d\n\tmax_sel\t%d\n\tmax_sym\t%d\n",
		g.Vers, g.GFlags, g.NParam, g.MaxSel, g.MaxSym)
	if g.GFlags&GFlagHaveStab != 0 {
		s += dumpTable(g.STab[:], "stab")
	}
	s += "}\n"
	for i := range g.P {
		s += fmt.Sprintf("\nParam[%d] = %s", i, g.P[i].String())
	}
	return s
}

// String renders a human-readable summary of a single parameter block.
func (p *Param) String() string {
	s := fmt.Sprintf("{\n\tcontext\t0x%04x\n\tpflags\t0x%02x\n\tmax_sym\t%d\n\tqbits\t%d\n\tqshift\t%d\n\tqloc\t%d\n\tsloc\t%d\n\tploc\t%d\n\tdloc\t%d\n",
		p.Context, p.PFlags, p.MaxSym, p.QBits, p.QShift, p.QLoc, p.SLoc, p.PLoc, p.DLoc)
	if p.PFlags&PFlagHaveQMap != 0 {
		s += dumpMap(p.QMap[:], "qmap")
	}
	if p.PFlags&PFlagHaveQTab != 0 {
		s += dumpTable(p.QTab[:], "qtab")
	}
	if p.PFlags&PFlagHavePTab != 0 {
		s += dumpTable(p.PTab[:], "ptab")
	}
	if p.PFlags&PFlagHaveDTab != 0 {
		s += dumpTable(p.DTab[:], "dtab")
	}
	s += "}\n"
	return s
}

func dumpTable(tab []uint32, name string) string {
	s := fmt.Sprintf("\t%s\t{", name)
	for i, v := range tab {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", v)
	}
	return s + "}\n"
}

func dumpMap(m []int, name string) string {
	s := fmt.Sprintf("\t%s\t{", name)
	c := 0
	for i, v := range m {
		if v == Unused {
			continue
		}
		if c > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d=%d", i, v)
		c++
	}
	return s + "}\n"
}
