package fqzcodec

import (
	"github.com/fqzcomp/qual/internal/fqzctx"
	"github.com/fqzcomp/qual/internal/fqzparam"
	"github.com/fqzcomp/qual/internal/fqzslice"
	"github.com/fqzcomp/qual/internal/rangecoder"
)

// Encode range-codes the flat quality buffer against gp/view and returns
// the payload bytes; the caller prepends the serialized GParams prelude
// (fqzparam.WriteGParams) to form the complete compressed block.
//
// Encode never mutates in: when gp.GFlags has GFlagDoRev set, it copies in
// before reversing per-record spans rather than mutating the caller's
// buffer in place, unlike the source (see SPEC_FULL.md open question on
// GFlagDoRev).
func Encode(gp *fqzparam.GParams, view *fqzslice.View, in []byte) ([]byte, error) {
	if len(gp.P) == 0 {
		return nil, ErrNoParams
	}
	for i := range gp.P {
		fqzctx.ShiftTables(&gp.P[i])
		gp.P[i].FirstLen = true
	}

	nrec := view.NumRecords()
	qLen := view.QLens(len(in))

	buf := in
	doRev := gp.GFlags&fqzparam.GFlagDoRev != 0
	if doRev {
		buf = make([]byte, len(in))
		copy(buf, in)
		// Pre-pass: reverse using the qual-offset-derived length vector.
		walkRecordSpans(qLen, nrec, len(buf), func(rec, lo, hi int) {
			if rec < nrec && view.Records[rec].Reverse() {
				reverseSpan(buf, lo, hi-1)
			}
		})
	}

	ms := newModelSet(gp.MaxSym)
	rc := rangecoder.NewEncoder()

	pm := &gp.P[0]
	var st fqzctx.State
	var last uint32
	lastLen := 0
	rec := 0

	for i := 0; i < len(buf); {
		if st.P == 0 {
			sel := 0
			if pm.DoSel {
				if rec < nrec {
					sel = int(view.Records[rec].Selector())
				}
				ms.selector.EncodeSymbol(rc, sel)
			}
			idx := sel
			if gp.GFlags&fqzparam.GFlagHaveStab != 0 {
				idx = int(gp.STab[sel])
			}
			if idx < 0 || idx >= len(gp.P) {
				idx = 0
			}
			pm = &gp.P[idx]

			length := len(buf) - i
			if rec < nrec {
				length = int(qLen[rec])
			}

			if !pm.FixedLen || pm.FirstLen {
				encodeLen(ms, rc, uint32(length))
				pm.FirstLen = false
			}

			if doRev {
				bit := 0
				if rec < nrec && view.Records[rec].Reverse() {
					bit = 1
				}
				ms.revcomp.EncodeSymbol(rc, bit)
			}

			rec++
			st.P = uint32(length)
			st.Delta, st.QCtx, st.PrevQ = 0, 0, 0
			st.S = uint32(sel)
			last = uint32(pm.Context)

			if pm.DoDedup {
				if i > 0 && length == lastLen && bytesEqualSpan(buf, i-lastLen, i, length) {
					ms.dup.EncodeSymbol(rc, 1)
					i += length
					st.P = 0
					continue
				}
				ms.dup.EncodeSymbol(rc, 0)
				lastLen = length
			}
		}

		q := buf[i]
		qm := uint32(q)
		if m := pm.QMap[q]; m != fqzparam.Unused {
			qm = uint32(m)
		}
		ms.qualModel(last).EncodeSymbol(rc, int(qm))
		last = fqzctx.Update(pm, &st, qm)
		i++
	}

	payload := rc.Finish()
	// buf is a private copy once doRev is set; the un-reverse pass the
	// source runs afterward exists only to restore its caller's buffer,
	// which we never mutated, so there is nothing to undo here.

	return payload, nil
}

func encodeLen(ms *modelSet, rc *rangecoder.Encoder, v uint32) {
	ms.length[0].EncodeSymbol(rc, int(v&0xff))
	ms.length[1].EncodeSymbol(rc, int((v>>8)&0xff))
	ms.length[2].EncodeSymbol(rc, int((v>>16)&0xff))
	ms.length[3].EncodeSymbol(rc, int((v>>24)&0xff))
}

func bytesEqualSpan(buf []byte, lo, hi, n int) bool {
	if lo < 0 {
		return false
	}
	a, b := buf[lo:lo+n], buf[hi:hi+n]
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// walkRecordSpans replays the record/byte-range bookkeeping shared by the
// reversal passes: for each record (or the trailing partial record past
// the last one) it reports the record index and the half-open byte range
// [lo,hi) of the buffer it occupies.
func walkRecordSpans(qLen []uint32, nrec, inSize int, visit func(rec, lo, hi int)) {
	i, rec := 0, 0
	for i < inSize {
		j := inSize - i
		if rec < nrec {
			j = int(qLen[rec])
		}
		visit(rec, i, i+j)
		i += j
		rec++
	}
}

func reverseSpan(buf []byte, lo, hi int) {
	for lo < hi {
		buf[lo], buf[hi] = buf[hi], buf[lo]
		lo++
		hi--
	}
}
