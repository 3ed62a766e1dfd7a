// Package qual implements fqzcomp-qual, the context-mixing adaptive
// arithmetic codec CRAM uses for sequencing quality-score streams. It
// statistically profiles a quality buffer, picks a parameter set, and
// range-codes the bytes against a position/delta/quality composite
// context — or reverses that process on decode.
//
// Basic usage for compressing:
//
//	view := &qual.SliceView{Records: []qual.Record{{QualOffset: 0, Len: len(q)}}}
//	out, err := qual.Compress(4, 0, view, q) // format 4, strategy 0, level unused
//
// Basic usage for decompressing:
//
//	q, err := qual.Decompress(out, expectedLen)
package qual

import (
	"errors"
	"fmt"

	"github.com/fqzcomp/qual/internal/fqzcodec"
	"github.com/fqzcomp/qual/internal/fqzparam"
	"github.com/fqzcomp/qual/internal/fqzstats"
)

// StrategyPreset is the tuning vector a strategy index selects (qbits,
// qshift, pbits, pshift, dbits, dshift, qloc, sloc, ploc, dloc, do_r2,
// do_qa). It is exposed only so CompressWithOverride can replace the
// built-in "custom" row (strategy index 4), mirroring the original
// harness's `-x` raw parameter override.
type StrategyPreset = fqzstats.StrategyPreset

// Sentinel errors returned by Compress/Decompress, per the codec's error
// handling design: every failure surfaces as (nil, error), never a partial
// buffer, never a panic.
var (
	ErrAlloc              = errors.New("fqzcomp: allocation failure")
	ErrUnsupportedVersion = errors.New("fqzcomp: unsupported version")
	ErrCorruptParameters  = errors.New("fqzcomp: corrupt parameter block")
	ErrCorruptStream      = errors.New("fqzcomp: corrupt range-coded stream")
	ErrOutputOverflow     = errors.New("fqzcomp: decoded length exceeds output buffer")
	ErrInvalidSelector    = errors.New("fqzcomp: selector out of range")
)

// maxOutputSize bounds the decoded-buffer allocation Decompress will
// attempt; CRAM quality streams are per-slice, never anywhere near this
// large, so anything above it is almost certainly a corrupt or hostile
// length rather than a legitimate allocation request.
const maxOutputSize = 1 << 30

// Compress tunes a parameter set for in against view and range-codes it,
// returning a self-describing block: the serialized parameter prelude
// followed by the coded payload.
//
// vers packs the stream format in its low byte (3 stores quality reversed
// per-record under the REVERSE flag, GFlagDoRev; 4 does not) and the
// tuning strategy in its high byte, mirroring compress_block_fqz2f's own
// vers/strat packing; strategy selects one of the five built-in presets
// (0..4) and clamps to the nearest end outside that range. level is
// accepted for interface parity with the source but, like the source,
// does not currently influence tuning.
//
// Compress uses the upper 16 bits of each record's Flags as scratch space
// for the chosen selector and always clears them before returning,
// regardless of success or failure, so the caller's view is never left
// holding internal state.
func Compress(vers, level int, view *SliceView, in []byte) ([]byte, error) {
	return CompressWithOverride(vers, level, view, in, nil)
}

// CompressWithOverride is Compress, but when custom is non-nil it replaces
// the built-in "custom" strategy row (index len(Presets)-1) before tuning,
// the way the original harness's `-x HEX` flag overwrites `strat_opts[nstrats-1]`
// in place. Callers that want this must also pick that strategy index in
// vers's high byte.
func CompressWithOverride(vers, level int, view *SliceView, in []byte, custom *StrategyPreset) ([]byte, error) {
	format := vers & 0xff
	strategy := vers >> 8
	if format != 3 && format != 4 {
		return nil, fmt.Errorf("compress: vers=%d: %w", format, ErrUnsupportedVersion)
	}
	defer clearSelectors(view)

	gp := fqzstats.Tune(fqzstats.Options{Vers: format, Strategy: strategy, Level: level, Custom: custom}, view, in)

	payload, err := fqzcodec.Encode(gp, view, in)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", mapCodecErr(err))
	}

	prelude := fqzparam.WriteGParams(gp)
	out := make([]byte, 0, len(prelude)+len(payload))
	out = append(out, prelude...)
	out = append(out, payload...)
	return out, nil
}

// Decompress reads the self-describing prelude from in, then range-decodes
// exactly expectedOutSize bytes of payload against it. Decompress needs no
// SliceView: record boundaries and REVERSE flags are recovered from the
// stream itself as it decodes.
//
// A negative or implausibly large expectedOutSize is rejected up front with
// ErrAlloc rather than handed to make(), mirroring the source's own
// allocation-failure check around uncompress_block_fqz2f's output malloc.
func Decompress(in []byte, expectedOutSize int) ([]byte, error) {
	if expectedOutSize < 0 || expectedOutSize > maxOutputSize {
		return nil, fmt.Errorf("decompress: expectedOutSize=%d: %w", expectedOutSize, ErrAlloc)
	}

	gp, n, err := fqzparam.ReadGParams(in)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", mapParamErr(err))
	}

	out, err := fqzcodec.Decode(gp, in[n:], expectedOutSize)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", mapCodecErr(err))
	}
	return out, nil
}

func clearSelectors(view *SliceView) {
	for i := range view.Records {
		view.Records[i].ClearSelector()
	}
}

func mapCodecErr(err error) error {
	switch {
	case errors.Is(err, fqzcodec.ErrNoParams):
		return fmt.Errorf("%w: %v", ErrCorruptParameters, err)
	case errors.Is(err, fqzcodec.ErrCorruptStream):
		return fmt.Errorf("%w: %v", ErrCorruptStream, err)
	case errors.Is(err, fqzcodec.ErrOutputOverflow):
		return fmt.Errorf("%w: %v", ErrOutputOverflow, err)
	case errors.Is(err, fqzcodec.ErrInvalidSelector):
		return fmt.Errorf("%w: %v", ErrInvalidSelector, err)
	default:
		return err
	}
}

func mapParamErr(err error) error {
	switch {
	case errors.Is(err, fqzparam.ErrUnsupportedVersion):
		return fmt.Errorf("%w: %v", ErrUnsupportedVersion, err)
	case errors.Is(err, fqzparam.ErrCorrupt):
		return fmt.Errorf("%w: %v", ErrCorruptParameters, err)
	default:
		return err
	}
}
