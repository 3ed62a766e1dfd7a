package fqzstats

import (
	"math/rand"
	"os"
	"testing"

	"github.com/fqzcomp/qual/internal/fqzslice"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func uniformQuals(rng *rand.Rand, n, maxSym int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(rng.Intn(maxSym + 1))
	}
	return buf
}

func TestTuneProducesUsableParam(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := uniformQuals(rng, 4000, 40)
	view := &fqzslice.View{Records: []fqzslice.Record{
		{QualOffset: 0, Len: 100},
		{QualOffset: 100, Len: 100},
		{QualOffset: 200, Len: 100},
	}}

	gp := Tune(Options{Strategy: 0}, view, in)
	require.Len(t, gp.P, 1)
	require.Equal(t, 40, gp.P[0].MaxSym)
	require.Equal(t, 41, gp.P[0].NSym)
	require.NotZero(t, gp.P[0].QMask)
}

func TestTuneDetectsFixedLength(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const recLen = 50
	recs := make([]fqzslice.Record, 8)
	for i := range recs {
		recs[i] = fqzslice.Record{QualOffset: i * recLen, Len: recLen}
	}
	view := &fqzslice.View{Records: recs}
	in := uniformQuals(rng, recLen*len(recs), 40)

	gp := Tune(Options{Strategy: 0}, view, in)
	require.True(t, gp.P[0].FixedLen)
}

func TestTuneDetectsVariableLength(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	view := &fqzslice.View{Records: []fqzslice.Record{
		{QualOffset: 0, Len: 50},
		{QualOffset: 50, Len: 80},
	}}
	in := uniformQuals(rng, 130, 40)

	gp := Tune(Options{Strategy: 0}, view, in)
	require.False(t, gp.P[0].FixedLen)
}

func TestTuneDetectsDuplicateReads(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	rec := uniformQuals(rng, 50, 40)
	in := make([]byte, 0, 50*2000)
	recs := make([]fqzslice.Record, 0, 2000)
	for i := 0; i < 2000; i++ {
		recs = append(recs, fqzslice.Record{QualOffset: len(in), Len: 50})
		in = append(in, rec...)
	}
	view := &fqzslice.View{Records: recs}

	gp := Tune(Options{Strategy: 0}, view, in)
	require.True(t, gp.P[0].DoDedup)
}

func TestTuneNoDuplicatesForDistinctReads(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	// (nrec+1)/(dupcount+1) must reach 500 for dedup to stay off.
	recs := make([]fqzslice.Record, 0, 1000)
	in := make([]byte, 0, 50*1000)
	for i := 0; i < 1000; i++ {
		recs = append(recs, fqzslice.Record{QualOffset: len(in), Len: 50})
		in = append(in, uniformQuals(rng, 50, 40)...)
	}
	view := &fqzslice.View{Records: recs}

	gp := Tune(Options{Strategy: 0}, view, in)
	require.False(t, gp.P[0].DoDedup)
}

func TestTuneLowAlphabetTriggersQMap(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	recs := make([]fqzslice.Record, 0, 100)
	in := make([]byte, 0, 100*100)
	for i := 0; i < 100; i++ {
		recs = append(recs, fqzslice.Record{QualOffset: len(in), Len: 100})
		rec := uniformQuals(rng, 100, 3)
		for k := range rec {
			rec[k] += 30 // 4 distinct values, max 33: nsym*2 < max_sym
		}
		in = append(in, rec...)
	}
	view := &fqzslice.View{Records: recs}

	gp := Tune(Options{Strategy: 0}, view, in)
	require.True(t, gp.P[0].StoreQMap)
	require.LessOrEqual(t, gp.P[0].MaxSym, 4)
}

func TestTuneReversalFlagFromVersion3(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	view := &fqzslice.View{Records: []fqzslice.Record{{QualOffset: 0, Len: 60}}}
	in := uniformQuals(rng, 60, 40)

	gp := Tune(Options{Vers: 3, Strategy: 0}, view, in)
	require.NotZero(t, gp.GFlags&0x04) // GFlagDoRev
}

func TestTuneCustomStrategyUsesOverride(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	view := &fqzslice.View{Records: []fqzslice.Record{{QualOffset: 0, Len: 60}}}
	in := uniformQuals(rng, 60, 40)

	custom := &StrategyPreset{QBits: 9, QShift: 4, PBits: 3, PShift: 1, DBits: 1, DShift: 1, SLoc: 14, PLoc: 9, DLoc: 13}
	gp := Tune(Options{Strategy: len(Presets) - 1, Custom: custom}, view, in)
	require.Equal(t, 9, gp.P[0].QBits)
	require.Equal(t, 4, gp.P[0].QShift)
}

func TestTuneReadSplitFoldsSelectorAndEnablesDoSel(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	const recLen = 80
	const nrec = 2000
	recs := make([]fqzslice.Record, nrec)
	in := make([]byte, 0, recLen*nrec)
	for i := range recs {
		flags := uint32(0)
		var rec []byte
		if i%2 == 0 {
			rec = uniformQuals(rng, recLen, 40)
		} else {
			flags = fqzslice.FlagRead2
			rec = make([]byte, recLen)
			for k := range rec {
				rec[k] = 2 // near-constant, very different distribution from read1
			}
		}
		recs[i] = fqzslice.Record{QualOffset: len(in), Len: recLen, Flags: flags}
		in = append(in, rec...)
	}
	view := &fqzslice.View{Records: recs}

	gp := Tune(Options{Strategy: 2}, view, in) // strategy 2 has DoQA=0, exercises DoR2 path only
	require.Len(t, gp.P, 1)
	require.Equal(t, uint32(1), view.Records[1].Selector()) // read2 record: sel*2+1
	require.True(t, gp.P[0].DoSel)
}

// scenarioFixture is the shape of testdata/scenarios.yaml: one row per
// end-to-end scenario, with the synthetic record pattern it builds and the
// tuner outcomes it should produce.
type scenarioFixture struct {
	Scenarios []struct {
		Name          string `yaml:"name"`
		Pattern       string `yaml:"pattern"`
		Value         int    `yaml:"value"`
		LowValue      int    `yaml:"low_value"`
		HighValue     int    `yaml:"high_value"`
		RecordLen     int    `yaml:"record_len"`
		RecordCount   int    `yaml:"record_count"`
		WantMaxSym    int    `yaml:"want_max_sym"`
		WantFixedLen  bool   `yaml:"want_fixed_len"`
		WantDedup     bool   `yaml:"want_dedup"`
	} `yaml:"scenarios"`
}

// TestScenariosFromFixture drives the tuner against the external golden
// scenarios (spec.md §8 S1-S3) instead of inlining their byte patterns here.
func TestScenariosFromFixture(t *testing.T) {
	raw, err := os.ReadFile("testdata/scenarios.yaml")
	require.NoError(t, err)

	var fx scenarioFixture
	require.NoError(t, yaml.Unmarshal(raw, &fx))
	require.NotEmpty(t, fx.Scenarios)

	for _, sc := range fx.Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			recs := make([]fqzslice.Record, sc.RecordCount)
			in := make([]byte, 0, sc.RecordLen*sc.RecordCount)

			switch sc.Pattern {
			case "uniform":
				for i := range recs {
					recs[i] = fqzslice.Record{QualOffset: len(in), Len: sc.RecordLen}
					for k := 0; k < sc.RecordLen; k++ {
						in = append(in, byte(sc.Value))
					}
				}
			case "two_bucket":
				for i := range recs {
					recs[i] = fqzslice.Record{QualOffset: len(in), Len: sc.RecordLen}
					v := byte(sc.LowValue)
					if i >= sc.RecordCount/2 {
						v = byte(sc.HighValue)
					}
					for k := 0; k < sc.RecordLen; k++ {
						in = append(in, v)
					}
				}
			case "repeated":
				rng := rand.New(rand.NewSource(42))
				rec := uniformQuals(rng, sc.RecordLen, 40)
				for i := range recs {
					recs[i] = fqzslice.Record{QualOffset: len(in), Len: sc.RecordLen}
					in = append(in, rec...)
				}
			default:
				t.Fatalf("unknown pattern %q", sc.Pattern)
			}

			view := &fqzslice.View{Records: recs}
			gp := Tune(Options{Strategy: 0}, view, in)
			require.Len(t, gp.P, 1)

			if sc.WantMaxSym != 0 {
				require.Equal(t, sc.WantMaxSym, gp.P[0].MaxSym)
			}
			require.Equal(t, sc.WantFixedLen, gp.P[0].FixedLen)
			if sc.WantDedup {
				require.True(t, gp.P[0].DoDedup)
			}
		})
	}
}
