package fqzcodec

import (
	"fmt"

	"github.com/fqzcomp/qual/internal/fqzctx"
	"github.com/fqzcomp/qual/internal/fqzparam"
	"github.com/fqzcomp/qual/internal/rangecoder"
)

// Decode is the symmetric inverse of Encode: it range-decodes payload
// against gp and returns exactly outSize bytes. Decode reconstructs its
// own per-record length/reverse bookkeeping as it consumes the stream,
// so unlike Encode it needs no SliceView.
func Decode(gp *fqzparam.GParams, payload []byte, outSize int) ([]byte, error) {
	if len(gp.P) == 0 {
		return nil, ErrNoParams
	}
	for i := range gp.P {
		fqzctx.ShiftTables(&gp.P[i])
		gp.P[i].FirstLen = true
	}

	inverses := make([][256]int, len(gp.P))
	for pi := range gp.P {
		inverses[pi] = qmapInverse(&gp.P[pi])
	}

	ms := newModelSet(gp.MaxSym)
	rc := rangecoder.NewDecoder(payload)

	out := make([]byte, outSize)

	pm := &gp.P[0]
	inv := inverses[0]
	var st fqzctx.State
	var last uint32
	lastLen := 0

	doRev := gp.GFlags&fqzparam.GFlagDoRev != 0
	var revFlags []bool
	var lens []int

	i := 0
	for i < outSize {
		if st.P == 0 {
			sel := 0
			if pm.DoSel {
				sel = ms.selector.DecodeSymbol(rc)
			}
			s := sel
			if s > 255 {
				s = 255
			}
			idx := int(gp.STab[s])
			if idx < 0 || idx >= len(gp.P) {
				return nil, fmt.Errorf("%w: %d (nparam=%d)", ErrInvalidSelector, idx, len(gp.P))
			}
			pm = &gp.P[idx]
			inv = inverses[idx]

			length := lastLen
			if !pm.FixedLen || pm.FirstLen {
				length = int(decodeLen(ms, rc))
				pm.FirstLen = false
				lastLen = length
			}
			if length < 0 || i+length > outSize {
				return nil, fmt.Errorf("%w: record length %d at offset %d", ErrOutputOverflow, length, i)
			}

			if doRev {
				rev := ms.revcomp.DecodeSymbol(rc) != 0
				revFlags = append(revFlags, rev)
				lens = append(lens, length)
			}

			if pm.DoDedup {
				if ms.dup.DecodeSymbol(rc) != 0 {
					if i < length {
						return nil, fmt.Errorf("%w: dedup with no prior record", ErrCorruptStream)
					}
					copy(out[i:i+length], out[i-length:i])
					i += length
					st.P = 0
					continue
				}
			}

			st.P = uint32(length)
			st.Delta, st.QCtx, st.PrevQ = 0, 0, 0
			st.S = uint32(sel)
			last = uint32(pm.Context)
		}

		if rc.Exhausted() {
			return nil, fmt.Errorf("%w: ran out of input at offset %d", ErrCorruptStream, i)
		}

		sym := ms.qualModel(last).DecodeSymbol(rc)
		q := byte(sym)
		if m := inv[sym&0xff]; m != fqzparam.Unused {
			q = byte(m)
		}
		out[i] = q
		last = fqzctx.Update(pm, &st, uint32(sym))
		i++
	}

	if doRev {
		i = 0
		for rec := 0; rec < len(lens) && i < outSize; rec++ {
			l := lens[rec]
			if l > 0 && revFlags[rec] {
				reverseSpan(out, i, i+l-1)
			}
			i += l
		}
	}

	return out, nil
}

func decodeLen(ms *modelSet, rc *rangecoder.Decoder) uint32 {
	b0 := uint32(ms.length[0].DecodeSymbol(rc))
	b1 := uint32(ms.length[1].DecodeSymbol(rc))
	b2 := uint32(ms.length[2].DecodeSymbol(rc))
	b3 := uint32(ms.length[3].DecodeSymbol(rc))
	return b0 | b1<<8 | b2<<16 | b3<<24
}

// qmapInverse builds the symbol->quality inverse of a Param's QMap: the
// wire format (and Param.QMap as the tuner builds it) records the forward
// quality->symbol mapping, but decoding needs the other direction. When
// QMap isn't a packed permutation (StoreQMap false), it's already its own
// inverse (identity).
func qmapInverse(p *fqzparam.Param) [256]int {
	var inv [256]int
	for i := range inv {
		inv[i] = fqzparam.Unused
	}
	if !p.StoreQMap {
		for i := range inv {
			inv[i] = i
		}
		return inv
	}
	for q, sym := range p.QMap {
		if sym != fqzparam.Unused && sym >= 0 && sym < 256 {
			inv[sym] = q
		}
	}
	return inv
}
