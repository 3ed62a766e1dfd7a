package qual

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// FuzzDecompress checks bounds safety (property 7): on any random byte
// stream presented as prelude+payload, Decompress must terminate and
// either return an error or at most expectedOutSize bytes, never panic
// and never read out of bounds.
func FuzzDecompress(f *testing.F) {
	f.Add([]byte{}, 0)
	f.Add([]byte{5}, 0)
	f.Add([]byte{5, 0}, 10)
	f.Add([]byte{6, 0}, 10) // unsupported version byte
	f.Add([]byte{5, 0x01, 0}, 10)
	f.Add(make([]byte, 16*1024), 16*1024)

	f.Fuzz(func(t *testing.T, data []byte, expect int) {
		if expect < 0 || expect > 1<<20 {
			return
		}
		out, err := Decompress(data, expect)
		if err != nil {
			require.Nil(t, out)
			return
		}
		require.LessOrEqual(t, len(out), expect)
	})
}

func uniformQuals(rng *rand.Rand, n, maxSym int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(rng.Intn(maxSym + 1))
	}
	return buf
}

func TestRoundTripAllVersionsAndStrategies(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := uniformQuals(rng, 2000, 40)

	for _, vers := range []int{3, 4} {
		for strat := 0; strat < 5; strat++ {
			view := &SliceView{Records: []Record{
				{QualOffset: 0, Len: 500},
				{QualOffset: 500, Len: 700},
				{QualOffset: 1200, Len: 800},
			}}
			packed := vers | strat<<8

			compressed, err := Compress(packed, 0, view, in)
			require.NoErrorf(t, err, "vers=%d strat=%d", vers, strat)

			out, err := Decompress(compressed, len(in))
			require.NoErrorf(t, err, "vers=%d strat=%d", vers, strat)
			require.Equalf(t, in, out, "vers=%d strat=%d", vers, strat)
		}
	}
}

// TestScenarioS1UniformFour mirrors scenario S1: a single uniform-valued
// record should collapse to a tiny alphabet and survive round-trip.
func TestScenarioS1UniformFour(t *testing.T) {
	in := make([]byte, 100)
	for i := range in {
		in[i] = 30
	}
	view := &SliceView{Records: []Record{{QualOffset: 0, Len: 100}}}

	compressed, err := Compress(4, 0, view, in)
	require.NoError(t, err)

	out, err := Decompress(compressed, len(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestScenarioS2TwoBucket mirrors scenario S2: two disjoint quality values
// across many fixed-length records, expecting a 2-symbol alphabet.
func TestScenarioS2TwoBucket(t *testing.T) {
	const recLen = 50
	recs := make([]Record, 1000)
	in := make([]byte, 0, recLen*1000)
	for i := range recs {
		recs[i] = Record{QualOffset: len(in), Len: recLen}
		v := byte(20)
		if i >= 500 {
			v = 40
		}
		for k := 0; k < recLen; k++ {
			in = append(in, v)
		}
	}
	view := &SliceView{Records: recs}

	compressed, err := Compress(4, 0, view, in)
	require.NoError(t, err)

	out, err := Decompress(compressed, len(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestScenarioS3Dedup mirrors scenario S3: many identical records should
// trigger dedup and still round-trip exactly.
func TestScenarioS3Dedup(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	rec := make([]byte, 75)
	for i := range rec {
		rec[i] = byte(10 + i%10)
	}
	_ = rng
	recs := make([]Record, 200)
	in := make([]byte, 0, 75*200)
	for i := range recs {
		recs[i] = Record{QualOffset: len(in), Len: 75}
		in = append(in, rec...)
	}
	view := &SliceView{Records: recs}

	compressed, err := Compress(4, 0, view, in)
	require.NoError(t, err)

	out, err := Decompress(compressed, len(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestScenarioS4Read2Split mirrors scenario S4: read1/read2 records drawn
// from disjoint quality ranges should round-trip exactly regardless of
// whether the tuner folds a selector in.
func TestScenarioS4Read2Split(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	recs := make([]Record, 1000)
	in := make([]byte, 0, 64*1000)
	for i := range recs {
		var flags uint32
		var v byte
		if i < 500 {
			v = byte(rng.Intn(6))
		} else {
			flags = FlagRead2
			v = byte(30 + rng.Intn(6))
		}
		recs[i] = Record{QualOffset: len(in), Len: 64, Flags: flags}
		for k := 0; k < 64; k++ {
			in = append(in, v)
		}
	}
	view := &SliceView{Records: recs}

	compressed, err := Compress(4, 0, view, in)
	require.NoError(t, err)

	out, err := Decompress(compressed, len(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestScenarioS5MixedLength mirrors scenario S5: repeating variable-length
// records should disable fixed-length mode and still round-trip.
func TestScenarioS5MixedLength(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	lengths := []int{50, 100, 75, 100, 50}
	recs := make([]Record, 0, 40)
	in := make([]byte, 0, 2000)
	for i := 0; i < 40; i++ {
		l := lengths[i%len(lengths)]
		recs = append(recs, Record{QualOffset: len(in), Len: l})
		in = append(in, uniformQuals(rng, l, 40)...)
	}
	view := &SliceView{Records: recs}

	compressed, err := Compress(4, 0, view, in)
	require.NoError(t, err)

	out, err := Decompress(compressed, len(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// TestScenarioS6MalformedPrelude mirrors scenario S6: an unsupported
// version byte or a corrupt nparam must surface a typed error, never a
// partial buffer.
func TestScenarioS6MalformedPrelude(t *testing.T) {
	_, err := Decompress([]byte{6, 0}, 10)
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	// vers=5, gflags=MultiParam bit set, nparam=0
	_, err = Decompress([]byte{5, 0x01, 0}, 10)
	require.ErrorIs(t, err, ErrCorruptParameters)
}

func TestCompressRejectsUnsupportedVersion(t *testing.T) {
	view := &SliceView{Records: []Record{{QualOffset: 0, Len: 10}}}
	_, err := Compress(5, 0, view, make([]byte, 10))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}
