// Package fqzstats implements the statistical front end that picks a
// parameter block for a quality-score buffer: per-position histograms,
// duplicate-read detection, and entropy-driven auto-tuning of the
// average-quality and read1/read2 selector splits.
package fqzstats

import (
	"github.com/chewxy/math32"
	"github.com/fqzcomp/qual/internal/fqzparam"
	"github.com/fqzcomp/qual/internal/fqzslice"
)

// numPos is the number of position buckets (NP) the position-indexed
// histograms wrap around at; positions are counted down from the end of
// each record, mirroring the source's "bytes remaining" indexing.
const numPos = 128

// Options selects a strategy preset and, for the custom row, supplies its
// values explicitly (the CLI's -x override).
type Options struct {
	Vers     int // 3 or 4; version 3 stores quality reversed (GFlagDoRev)
	Strategy int
	Level    int
	Custom   *StrategyPreset
}

// Tune inspects the flat quality buffer and its per-record view, derives
// a single parameter block via the preset-plus-auto-tune heuristics, and
// returns the populated GParams ready for fqzparam.WriteGParams.
//
// Tune writes the chosen selector (if any) into the upper 16 bits of each
// record's Flags; callers must clear these once the block is encoded
// (Record.ClearSelector), since Flags is caller-owned state.
func Tune(opts Options, view *fqzslice.View, in []byte) *fqzparam.GParams {
	strat := opts.Strategy
	if strat >= len(Presets) {
		strat = len(Presets) - 1
	}
	if strat < 0 {
		strat = 0
	}
	preset := Presets[strat]
	if strat == len(Presets)-1 && opts.Custom != nil {
		preset = *opts.Custom
	}

	nrec := view.NumRecords()
	qLen := view.QLens(len(in))

	gp := &fqzparam.GParams{Vers: fqzparam.WireVersion, NParam: 1}
	if opts.Vers == 3 {
		gp.GFlags |= fqzparam.GFlagDoRev
	}

	pm := &fqzparam.Param{
		QBits: preset.QBits, QShift: preset.QShift,
		PBits: preset.PBits, PShift: preset.PShift,
		DBits: preset.DBits, DShift: preset.DShift,
		QLoc: preset.QLoc, SLoc: preset.SLoc, PLoc: preset.PLoc, DLoc: preset.DLoc,
		DoR2: preset.DoR2, DoQA: preset.DoQA,
	}

	qhist := qualStats(view, in, qLen, pm)

	pm.StoreQMap = pm.NSym <= 8 && pm.NSym*2 < pm.MaxSym

	// Fixed-length detection.
	fixed := true
	if nrec > 0 {
		first := qLen[0]
		for i := 1; i < nrec; i++ {
			if qLen[i] != first {
				fixed = false
				break
			}
		}
	}
	pm.FixedLen = fixed
	pm.FirstLen = true

	if strat < len(Presets)-1 {
		if pm.PShift < 0 {
			readLen := 0
			if nrec > 0 {
				readLen = view.Records[0].Len
			}
			sh := 0
			if pm.PBits > 0 && readLen > 0 {
				sh = int(math32.Log2(float32(readLen)/float32(uint32(1)<<uint(pm.PBits))) + 0.5)
			}
			if sh < 0 {
				sh = 0
			}
			pm.PShift = sh
		}

		switch {
		case pm.NSym <= 4: // NovaSeq-like
			pm.QShift = 2
			if len(in) < 5000000 {
				pm.PBits = 2
				pm.PShift = 5
			}
		case pm.NSym <= 8: // HiSeqX-like
			if pm.QBits > 9 {
				pm.QBits = 9
			}
			pm.QShift = 3
			if len(in) < 5000000 {
				pm.QBits = 6
			}
		}

		if len(in) < 300000 {
			pm.QBits = pm.QShift
			pm.DBits = 2
		}
	}

	dsqrTab := dsqr
	dmax := (uint32(1) << uint(pm.DBits)) - 1
	for i := range dsqrTab {
		if uint32(dsqrTab[i]) > dmax {
			dsqrTab[i] = int(dmax)
		}
	}

	if pm.StoreQMap {
		j := 0
		for i := range pm.QMap {
			if qhist[i] > 0 {
				pm.QMap[i] = j
				j++
			} else {
				pm.QMap[i] = fqzparam.Unused
			}
		}
		pm.MaxSym = pm.NSym
	} else {
		pm.NSym = 255
		for i := range pm.QMap {
			pm.QMap[i] = i
		}
	}
	if gp.MaxSym < pm.MaxSym {
		gp.MaxSym = pm.MaxSym
	}

	if pm.QBits > 0 {
		for i := range pm.QTab {
			pm.QTab[i] = uint32(i)
		}
	}
	pm.QMask = (uint32(1) << uint(pm.QBits)) - 1

	if pm.PBits > 0 {
		pmax := (uint32(1) << uint(pm.PBits)) - 1
		for i := range pm.PTab {
			v := uint32(i) >> uint(pm.PShift)
			if v > pmax {
				v = pmax
			}
			pm.PTab[i] = v
		}
	}

	if pm.DBits > 0 {
		for i := range pm.DTab {
			idx := i >> uint(pm.DShift)
			if idx > len(dsqrTab)-1 {
				idx = len(dsqrTab) - 1
			}
			pm.DTab[i] = uint32(dsqrTab[idx])
		}
	}

	pm.UsePTab = pm.PBits > 0
	pm.UseDTab = pm.DBits > 0
	pm.UseQTab = false // unused by the encoder; qtab is always 1:1

	pm.PFlags = 0
	if pm.UseQTab {
		pm.PFlags |= fqzparam.PFlagHaveQTab
	}
	if pm.UseDTab {
		pm.PFlags |= fqzparam.PFlagHaveDTab
	}
	if pm.UsePTab {
		pm.PFlags |= fqzparam.PFlagHavePTab
	}
	if pm.DoSel {
		pm.PFlags |= fqzparam.PFlagDoSel
	}
	if pm.FixedLen {
		pm.PFlags |= fqzparam.PFlagDoLen
	}
	if pm.DoDedup {
		pm.PFlags |= fqzparam.PFlagDoDedup
	}
	if pm.StoreQMap {
		pm.PFlags |= fqzparam.PFlagHaveQMap
	}

	gp.MaxSel = 0
	if pm.DoSel {
		gp.MaxSel = 1
		gp.GFlags |= fqzparam.GFlagHaveStab
	}
	if gp.MaxSel > 0 {
		max := 0
		for i := range view.Records {
			if s := int(view.Records[i].Selector()); s > max {
				max = s
			}
		}
		gp.MaxSel = max
	}

	gp.P = []fqzparam.Param{*pm}
	return gp
}

// recWalk replays the record/position bookkeeping the tuner needs several
// times over (histogram accumulation, quantile binning, entropy
// comparison): for each record (or trailing partial record past the last
// one) it reports the record index (or nrec for the tail), its direction
// (read2), and the byte range [lo,hi) of the flat buffer it occupies.
func recWalk(view *fqzslice.View, qLen []uint32, inSize int, visit func(rec, lo, hi int, isRead2 bool)) {
	nrec := view.NumRecords()
	i := 0
	rec := 0
	for i < inSize {
		var j int
		dir := false
		if rec < nrec {
			j = int(qLen[rec])
			dir = view.Records[rec].Read2()
		} else {
			j = inSize - i
		}
		visit(rec, i, i+j, dir)
		i += j
		rec++
	}
}

// qualStats accumulates per-position/per-read1-2 histograms, flags
// duplicate reads, and applies the entropy-driven average-quality and
// read1/read2 selector auto-tuning, writing any chosen selector into each
// record's Flags. It returns the flat 256-bucket quality-value histogram
// and populates pm.MaxSym/NSym/DoDedup/DoSel as a side effect.
func qualStats(view *fqzslice.View, in []byte, qLen []uint32, pm *fqzparam.Param) [256]uint32 {
	var qhistb, qhist1, qhist2 [numPos][256]uint32
	var t1, t2 [numPos]uint64
	avg := make([]uint32, 2560)
	var qhist [256]uint32

	nrec := view.NumRecords()
	inSize := len(in)

	hasR2 := false
	for i := range view.Records {
		if view.Records[i].Read2() {
			hasR2 = true
		}
	}

	avgQual := make([]int, nrec+1)
	dupCount := 0
	lastLen := -1

	recWalk(view, qLen, inSize, func(rec, lo, hi int, dir bool) {
		j := hi - lo
		if lo > 0 && j == lastLen && bytesEqual(in[lo-lastLen:lo], in[lo:hi]) {
			dupCount++
		}
		lastLen = j

		qh, th := &qhist1, &t1
		if dir {
			qh, th = &qhist2, &t2
		}

		tot := 0
		rem := j
		for k := lo; k < hi; k++ {
			tot += int(in[k])
			qhist[in[k]]++
			idx := rem & (numPos - 1)
			qhistb[idx][in[k]]++
			qh[idx][in[k]]++
			th[idx]++
			rem--
		}
		avgTot := 0
		if j > 0 {
			avgTot = int(float64(tot)*10.0/float64(j) + 0.5)
		}
		if rec < len(avgQual) {
			avgQual[rec] = avgTot
		}
		bucket := avgTot
		if bucket > 2559 {
			bucket = 2559
		}
		avg[bucket]++
	})

	recCount := nrec
	if inSize > 0 && nrec == 0 {
		recCount = 1 // the tail-only walk still produced one avgQual entry
	}
	pm.DoDedup = (recCount+1)/(dupCount+1) < 500

	pm.MaxSym, pm.NSym = 0, 0
	for i := 0; i < 256; i++ {
		if qhist[i] > 0 {
			pm.MaxSym = i
			pm.NSym++
		}
	}

	if pm.DoQA != 0 {
		tuneAverageQuality(pm, avg, avgQual, view, qLen, in, nrec)
	}

	if hasR2 || pm.DoR2 != 0 {
		tuneReadSplit(pm, qhistb, qhist1, qhist2, t1, t2, view, nrec)
	}

	maxSel := 0
	for i := range view.Records {
		if s := int(view.Records[i].Selector()); s > maxSel {
			maxSel = s
		}
	}
	if maxSel > 0 {
		pm.DoSel = true
	}

	return qhist
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// tuneAverageQuality bins per-record average quality into quantile
// buckets, compares merged-vs-split (2-way and 4-way) entropy, and if
// splitting saves enough to offset the extra selector bits, writes a
// 2-way or 4-way selector into each record's flags and steals the
// corresponding bits from the position/delta/quality context fields.
func tuneAverageQuality(pm *fqzparam.Param, avg []uint32, avgQual []int, view *fqzslice.View, qLen []uint32, in []byte, nrec int) {
	qf0, qf1, qf2 := float32(0.25), float32(0.50), float32(0.75)
	if pm.NSym <= 4 {
		qf0, qf1, qf2 = 0.05, 0.15, 0.60
	}

	total, i := 0, 0
	for i < 2560 {
		total += int(avg[i])
		if float32(total) > qf0*float32(nrec) {
			break
		}
		avg[i] = 0
		i++
	}
	for i < 2560 {
		total += int(avg[i])
		if float32(total) > qf1*float32(nrec) {
			break
		}
		avg[i] = 3
		i++
	}
	for i < 2560 {
		total += int(avg[i])
		if float32(total) > qf2*float32(nrec) {
			break
		}
		if i > 375 {
			break
		}
		avg[i] = 2
		i++
	}
	for i < 2560 {
		avg[i] = 1
		i++
	}

	var qbin4 [4][numPos][256]uint32
	var qbin2 [2][numPos][256]uint32
	var qbin1 [numPos][256]uint32
	var qcnt4 [4][numPos]uint32
	var qcnt2 [2][numPos]uint32
	var qcnt1 [numPos]uint32

	recWalk(view, qLen, len(in), func(rec, lo, hi int, _ bool) {
		tot := 0
		if rec < len(avgQual) {
			tot = avgQual[rec]
		}
		if tot > 2559 {
			tot = 2559
		}
		qb4 := int(avg[tot])
		qb2 := qb4 / 2

		rem := hi - lo
		for k := lo; k < hi; k++ {
			x := rem & (numPos - 1)
			sym := in[k]
			qbin4[qb4][x][sym]++
			qcnt4[qb4][x]++
			qbin2[qb2][x][sym]++
			qcnt2[qb2][x]++
			qbin1[x][sym]++
			qcnt1[x]++
			rem--
		}
	})

	var e1, e2, e4 float32
	for j := 0; j < numPos; j++ {
		for i := 0; i < 256; i++ {
			if qbin1[j][i] != 0 {
				e1 += float32(qbin1[j][i]) * math32.Log(float32(qbin1[j][i])/float32(qcnt1[j]))
			}
			if qbin2[0][j][i] != 0 {
				e2 += float32(qbin2[0][j][i]) * math32.Log(float32(qbin2[0][j][i])/float32(qcnt2[0][j]))
			}
			if qbin2[1][j][i] != 0 {
				e2 += float32(qbin2[1][j][i]) * math32.Log(float32(qbin2[1][j][i])/float32(qcnt2[1][j]))
			}
			for k := 0; k < 4; k++ {
				if qbin4[k][j][i] != 0 {
					e4 += float32(qbin4[k][j][i]) * math32.Log(float32(qbin4[k][j][i])/float32(qcnt4[k][j]))
				}
			}
		}
	}
	scale := -math32.Log(2) / 8
	e1 /= scale
	e2 /= scale
	e4 /= scale

	qm := float32(0.95)
	if pm.DoQA > 0 {
		qm = 1
	}

	if (pm.DoQA == -1 || pm.DoQA >= 4) &&
		e4+float32(nrec/4) < e2*qm+float32(nrec/8) &&
		e4+float32(nrec/4) < e1*qm {
		for i := range view.Records {
			b := clampBucket(avgQual, i)
			view.Records[i].Flags |= avg[b] << 16
		}
		pm.DoSel = true
	} else if (pm.DoQA == -1 || pm.DoQA >= 2) && e2+float32(nrec/8) < e1*qm {
		for i := range view.Records {
			b := clampBucket(avgQual, i)
			view.Records[i].Flags |= (avg[b] >> 1) << 16
		}
		pm.DoSel = true
	}

	if pm.DoQA == -1 {
		switch {
		case pm.PBits > 0 && pm.DBits > 0:
			pm.SLoc = pm.DLoc - 1
			pm.PBits--
			pm.DBits--
			pm.DLoc++
		case pm.DBits >= 2:
			pm.SLoc = pm.DLoc
			pm.DBits -= 2
			pm.DLoc += 2
		case pm.QBits >= 2:
			pm.QBits -= 2
			pm.PLoc -= 2
			pm.SLoc = 16 - 2 - pm.DoR2
			if pm.QBits == 6 && pm.QShift == 5 {
				pm.QBits--
			}
		}
		pm.DoQA = 4
	}
}

func clampBucket(avgQual []int, rec int) int {
	b := 0
	if rec < len(avgQual) {
		b = avgQual[rec]
	}
	if b > 2559 {
		b = 2559
	}
	return b
}

// tuneReadSplit compares the entropy of the merged read1+read2 position
// histograms against the split ones; if splitting saves enough, it folds
// the read1/read2 direction into the existing selector (doubling it and
// adding the direction bit), leaving pm.DoSel untouched. qualStats then
// sets DoSel because every read2 record now carries a nonzero selector,
// so the split reaches the wire format even when the average-quality
// stage chose no selector.
func tuneReadSplit(pm *fqzparam.Param, qhistb, qhist1, qhist2 [numPos][256]uint32, t1, t2 [numPos]uint64, view *fqzslice.View, nrec int) {
	var e1, e2 float32
	for j := 0; j < numPos; j++ {
		if t1[j] == 0 || t2[j] == 0 {
			continue
		}
		for i := 0; i < 256; i++ {
			if qhistb[j][i] == 0 {
				continue
			}
			e1 -= float32(qhistb[j][i]) * math32.Log(float32(qhistb[j][i])/float32(t1[j]+t2[j]))
			if qhist1[j][i] != 0 {
				e2 -= float32(qhist1[j][i]) * math32.Log(float32(qhist1[j][i])/float32(t1[j]))
			}
			if qhist2[j][i] != 0 {
				e2 -= float32(qhist2[j][i]) * math32.Log(float32(qhist2[j][i])/float32(t2[j]))
			}
		}
	}
	scale := math32.Log(2) * 8
	e1 /= scale
	e2 /= scale

	qm := float32(0.95)
	if pm.DoR2 > 0 {
		qm = 1
	}

	if e2+float32(8+nrec/8) < e1*qm {
		for i := range view.Records {
			sel := int(view.Records[i].Selector())
			var newSel uint32
			if view.Records[i].Read2() {
				newSel = uint32(sel*2 + 1)
			} else {
				newSel = uint32(sel * 2)
			}
			view.Records[i].SetSelector(newSel)
		}
	}
}
