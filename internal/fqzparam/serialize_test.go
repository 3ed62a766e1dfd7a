package fqzparam

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func simpleParam() Param {
	p := Param{}
	p.QBits, p.QShift = 10, 5
	p.PBits, p.PShift = 4, 0
	p.DBits, p.DShift = 2, 1
	p.QLoc, p.SLoc, p.PLoc, p.DLoc = 0, 14, 10, 14
	p.MaxSym = 40
	p.QMask = (1 << uint(p.QBits)) - 1
	for i := range p.QTab {
		p.QTab[i] = uint32(i)
	}
	for i := range p.PTab {
		v := i >> p.PShift
		if v > (1<<p.PBits)-1 {
			v = (1 << p.PBits) - 1
		}
		p.PTab[i] = uint32(v)
	}
	for i := range p.DTab {
		v := i >> p.DShift
		if v > (1<<p.DBits)-1 {
			v = (1 << p.DBits) - 1
		}
		p.DTab[i] = uint32(v)
	}
	p.UsePTab = true
	p.UseDTab = true
	p.FixedLen = true
	for i := range p.QMap {
		p.QMap[i] = i
	}
	return p
}

func TestParamRoundTrip(t *testing.T) {
	p := simpleParam()
	p.PFlags = PFlagHavePTab | PFlagHaveDTab | PFlagDoLen

	gp := &GParams{P: []Param{p}, NParam: 1}
	wire := WriteGParams(gp)

	got, n, err := ReadGParams(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	require.Equal(t, gp.P[0].PTab, got.P[0].PTab)
	require.Equal(t, gp.P[0].DTab, got.P[0].DTab)
	require.Equal(t, gp.P[0].QMask, got.P[0].QMask)
	require.True(t, got.P[0].FixedLen)
}

func TestParamRoundTripWithQMapAndStab(t *testing.T) {
	p := simpleParam()
	p.StoreQMap = true
	p.PFlags = PFlagHavePTab | PFlagHaveDTab | PFlagHaveQMap | PFlagDoSel
	for i := range p.QMap {
		p.QMap[i] = Unused
	}
	p.QMap[10] = 0
	p.QMap[20] = 1
	p.MaxSym = 2
	p.DoSel = true

	gp := &GParams{NParam: 1, P: []Param{p}, MaxSel: 1}
	gp.GFlags = GFlagHaveStab
	gp.STab[0] = 0
	gp.STab[1] = 0

	wire := WriteGParams(gp)
	got, n, err := ReadGParams(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	require.Equal(t, Unused, got.P[0].QMap[0])
	require.Equal(t, 0, got.P[0].QMap[10])
	require.Equal(t, 1, got.P[0].QMap[20])
}

func TestReadGParamsRejectsBadVersion(t *testing.T) {
	_, _, err := ReadGParams([]byte{6, 0})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReadGParamsRejectsTruncatedMultiParam(t *testing.T) {
	_, _, err := ReadGParams([]byte{WireVersion, GFlagMultiParam})
	require.Error(t, err)
}

// TestArrayRoundTripProperty checks property 3 from the spec: for every
// monotone-non-decreasing table t with t[i] < 1<<bits, decoding the
// encoding of t recovers t exactly, at the same byte-offset advance.
func TestArrayRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 300).Draw(rt, "size")
		bits := rapid.IntRange(1, 6).Draw(rt, "bits")
		maxVal := uint32(1<<uint(bits)) - 1

		arr := make([]uint32, size)
		var v uint32
		for i := range arr {
			if rapid.Bool().Draw(rt, "bump") && v < maxVal {
				v++
			}
			arr[i] = v
		}

		encoded := writeArray(arr, size)
		got := make([]uint32, size)
		n := readArray(encoded, got, size)

		require.Equal(t, arr, got)
		require.Equal(t, len(encoded), n)
	})
}
