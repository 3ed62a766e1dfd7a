package fqzstats

// StrategyPreset holds one row of the predefined (qbits,qshift,pbits,
// pshift,dbits,dshift,qloc,sloc,ploc,dloc,do_r2,do_qa) tuning vectors,
// indexed by strategy = min(strat, len(Presets)-1).
type StrategyPreset struct {
	QBits, QShift int
	PBits, PShift int
	DBits, DShift int
	QLoc, SLoc    int
	PLoc, DLoc    int
	DoR2, DoQA    int
}

// Presets are the five predefined strategy vectors: basic, HiSeq-2000-like,
// MiSeq-like, IonTorrent/adaptive-O1-like, and a blank "custom" row that the
// CLI's -x override (or a test) can fill in before tuning.
var Presets = [5]StrategyPreset{
	{QBits: 10, QShift: 5, PBits: 4, PShift: -1, DBits: 2, DShift: 1, QLoc: 0, SLoc: 14, PLoc: 10, DLoc: 14, DoR2: 0, DoQA: -1},
	{QBits: 8, QShift: 5, PBits: 7, PShift: 0, DBits: 0, DShift: 0, QLoc: 0, SLoc: 14, PLoc: 8, DLoc: 14, DoR2: 1, DoQA: -1},
	{QBits: 12, QShift: 6, PBits: 2, PShift: 0, DBits: 2, DShift: 3, QLoc: 0, SLoc: 9, PLoc: 12, DLoc: 14, DoR2: 0, DoQA: 0},
	{QBits: 12, QShift: 6, PBits: 0, PShift: 0, DBits: 0, DShift: 0, QLoc: 0, SLoc: 12, PLoc: 0, DLoc: 0, DoR2: 0, DoQA: 0},
	{}, // custom: all zero unless overridden
}

// dsqr is an approximate sqrt(delta) lookup, must stay sequential: each
// entry depends on position only, clamped to the active dbits width at use.
var dsqr = [64]int{
	0, 1, 1, 1, 2, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
}
