package fqzparam

import (
	"errors"
	"fmt"
)

// ErrCorrupt is wrapped into every parameter-decoding failure: a truncated
// prelude, an nparam of 0, or a stab index beyond nparam. The nibble-packed
// width and location fields are taken as stored; ReadGParams does not
// range-check them.
var ErrCorrupt = errors.New("fqzparam: corrupt parameter block")

// ErrUnsupportedVersion is returned when the wire version byte isn't 5.
var ErrUnsupportedVersion = errors.New("fqzparam: unsupported version")

// WriteGParams serializes the global prelude: vers, gflags, optional
// nparam, optional stab, then each parameter block in turn.
func WriteGParams(gp *GParams) []byte {
	out := make([]byte, 0, 64*len(gp.P)+8)
	out = append(out, byte(WireVersion))
	out = append(out, gp.GFlags)

	if gp.GFlags&GFlagMultiParam != 0 {
		out = append(out, byte(gp.NParam))
	}

	if gp.GFlags&GFlagHaveStab != 0 {
		out = append(out, byte(gp.MaxSel))
		out = append(out, writeArray(gp.STab[:], 256)...)
	}

	for i := range gp.P {
		out = append(out, writeParam1(&gp.P[i])...)
	}
	return out
}

func writeParam1(p *Param) []byte {
	out := make([]byte, 0, 64)
	out = append(out, byte(p.Context), byte(p.Context>>8))
	out = append(out, p.PFlags)
	out = append(out, byte(p.MaxSym))
	out = append(out, byte(p.QBits<<4)|byte(p.QShift))
	out = append(out, byte(p.QLoc<<4)|byte(p.SLoc))
	out = append(out, byte(p.PLoc<<4)|byte(p.DLoc))

	if p.StoreQMap {
		for i := 0; i < 256; i++ {
			if p.QMap[i] != Unused {
				out = append(out, byte(i))
			}
		}
	}

	if p.QBits > 0 && p.UseQTab {
		out = append(out, writeArray(p.QTab[:], 256)...)
	}
	if p.PBits > 0 && p.UsePTab {
		out = append(out, writeArray(p.PTab[:], 1024)...)
	}
	if p.DBits > 0 && p.UseDTab {
		out = append(out, writeArray(p.DTab[:], 256)...)
	}
	return out
}

// ReadGParams deserializes the global prelude produced by WriteGParams and
// returns the number of bytes consumed.
func ReadGParams(in []byte) (*GParams, int, error) {
	gp := &GParams{}
	idx := 0

	if idx >= len(in) {
		return nil, 0, fmt.Errorf("%w: empty input", ErrCorrupt)
	}
	gp.Vers = int(in[idx])
	idx++
	if gp.Vers != WireVersion {
		return nil, 0, fmt.Errorf("%w: got %d", ErrUnsupportedVersion, gp.Vers)
	}

	if idx >= len(in) {
		return nil, 0, fmt.Errorf("%w: truncated gflags", ErrCorrupt)
	}
	gp.GFlags = in[idx]
	idx++

	if gp.GFlags&GFlagMultiParam != 0 {
		if idx >= len(in) {
			return nil, 0, fmt.Errorf("%w: truncated nparam", ErrCorrupt)
		}
		gp.NParam = int(in[idx])
		idx++
	} else {
		gp.NParam = 1
	}
	if gp.NParam <= 0 {
		return nil, 0, fmt.Errorf("%w: nparam=%d", ErrCorrupt, gp.NParam)
	}

	if gp.GFlags&GFlagHaveStab != 0 {
		if idx >= len(in) {
			return nil, 0, fmt.Errorf("%w: truncated max_sel", ErrCorrupt)
		}
		gp.MaxSel = int(in[idx])
		idx++
		n := readArray(in[idx:], gp.STab[:], 256)
		idx += n
		for _, x := range gp.STab {
			if x >= uint32(gp.NParam) {
				return nil, 0, fmt.Errorf("%w: stab index %d >= nparam %d", ErrCorrupt, x, gp.NParam)
			}
		}
	} else {
		gp.MaxSel = 0
		if gp.NParam > 1 {
			gp.MaxSel = gp.NParam
		}
		for i := 0; i < gp.NParam && i < 256; i++ {
			gp.STab[i] = uint32(i)
		}
		for i := gp.NParam; i < 256; i++ {
			gp.STab[i] = uint32(gp.NParam - 1)
		}
	}

	gp.P = make([]Param, gp.NParam)
	gp.MaxSym = 0
	for i := 0; i < gp.NParam; i++ {
		n, err := readParam1(&gp.P[i], in[idx:])
		if err != nil {
			return nil, 0, err
		}
		idx += n
		if gp.P[i].MaxSym > gp.MaxSym {
			gp.MaxSym = gp.P[i].MaxSym
		}
	}

	return gp, idx, nil
}

func readParam1(p *Param, in []byte) (int, error) {
	const fixedHdr = 7
	if len(in) < fixedHdr {
		return 0, fmt.Errorf("%w: truncated param header", ErrCorrupt)
	}
	idx := 0
	p.Context = uint16(in[idx]) | uint16(in[idx+1])<<8
	idx += 2

	p.PFlags = in[idx]
	idx++
	p.UseQTab = p.PFlags&PFlagHaveQTab != 0
	p.UseDTab = p.PFlags&PFlagHaveDTab != 0
	p.UsePTab = p.PFlags&PFlagHavePTab != 0
	p.DoSel = p.PFlags&PFlagDoSel != 0
	p.FixedLen = p.PFlags&PFlagDoLen != 0
	p.DoDedup = p.PFlags&PFlagDoDedup != 0
	p.StoreQMap = p.PFlags&PFlagHaveQMap != 0

	p.MaxSym = int(in[idx])
	idx++

	p.QBits = int(in[idx] >> 4)
	p.QMask = (1 << uint(p.QBits)) - 1
	p.QShift = int(in[idx] & 0x0f)
	idx++
	p.QLoc = int(in[idx] >> 4)
	p.SLoc = int(in[idx] & 0x0f)
	idx++
	p.PLoc = int(in[idx] >> 4)
	p.DLoc = int(in[idx] & 0x0f)
	idx++

	if p.StoreQMap {
		for i := range p.QMap {
			p.QMap[i] = Unused
		}
		if idx+p.MaxSym > len(in) {
			return 0, fmt.Errorf("%w: truncated qmap", ErrCorrupt)
		}
		for i := 0; i < p.MaxSym; i++ {
			sym := int(in[idx])
			idx++
			if sym < 0 || sym > 255 {
				return 0, fmt.Errorf("%w: qmap index out of range", ErrCorrupt)
			}
			p.QMap[sym] = i
		}
	} else {
		for i := range p.QMap {
			p.QMap[i] = i
		}
	}

	if p.QBits > 0 {
		if p.UseQTab {
			n := readArray(in[idx:], p.QTab[:], 256)
			idx += n
		} else {
			for i := range p.QTab {
				p.QTab[i] = uint32(i)
			}
		}
	}

	if p.UsePTab {
		n := readArray(in[idx:], p.PTab[:], 1024)
		idx += n
	}

	if p.UseDTab {
		n := readArray(in[idx:], p.DTab[:], 256)
		idx += n
	}

	p.FirstLen = true
	return idx, nil
}
