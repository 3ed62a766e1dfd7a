// Package fqzcodec drives the full per-block pipeline: parameter lookup,
// per-record header coding (selector, length, revcomp, dedup), the main
// quality byte loop through the context engine and range coder, and the
// reversal pre/post passes for GFlagDoRev streams.
//
// State machine (per record): NEED_HEADER (selector/length/revcomp/dedup)
// -> IN_BODY (quality bytes until the record's length is exhausted) ->
// NEED_HEADER. Dedup short-circuits NEED_HEADER back to itself without
// visiting IN_BODY. The block terminates once the flat buffer is
// exhausted; reaching it is the only success condition; a range-coder
// error during IN_BODY or an out-of-range selector during NEED_HEADER
// aborts the whole block.
package fqzcodec

import "github.com/fqzcomp/qual/internal/rangecoder"

// modelSet holds every adaptive model a block needs. The per-context
// quality models are allocated lazily in a map rather than as one
// CTX_SIZE-entry array: most of the 65536 possible contexts are never
// visited by a real read set, so eager allocation would waste the bulk of
// the ~16 MiB the source pays up front for every block.
type modelSet struct {
	qual      map[uint32]*rangecoder.Model
	qualAlpha int
	length    [4]*rangecoder.Model
	revcomp   *rangecoder.Model
	dup       *rangecoder.Model
	selector  *rangecoder.Model
}

func newModelSet(maxSym int) *modelSet {
	alpha := maxSym + 1
	if alpha < 1 {
		alpha = 1
	}
	if alpha > 256 {
		alpha = 256
	}
	ms := &modelSet{
		qual:      make(map[uint32]*rangecoder.Model),
		qualAlpha: alpha,
		revcomp:   rangecoder.NewModel2(),
		dup:       rangecoder.NewModel2(),
		selector:  rangecoder.NewModel256(256),
	}
	for i := range ms.length {
		ms.length[i] = rangecoder.NewModel256(256)
	}
	return ms
}

func (ms *modelSet) qualModel(ctx uint32) *rangecoder.Model {
	m, ok := ms.qual[ctx]
	if !ok {
		m = rangecoder.NewModel256(ms.qualAlpha)
		ms.qual[ctx] = m
	}
	return m
}
