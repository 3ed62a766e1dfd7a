// Package fqzctx computes the 16-bit composite context used to index the
// per-symbol adaptive quality model. The context mixes a running quality
// sub-context, the position remaining in the record, a running delta of
// quality changes, and a per-record selector, each pre-shifted into its
// final bit position by the parameter block.
package fqzctx

import "github.com/fqzcomp/qual/internal/fqzparam"

// State is the per-record running state threaded through context updates.
// AddD is never read, like the source's unused add_d — kept here only for
// struct-layout parity.
type State struct {
	QCtx  uint32 // running quality sub-context
	P     uint32 // positions remaining in the record
	AddD  uint32 // unused; preserved for parity with the source's fqz_state
	Delta uint32 // running count of quality-value changes
	PrevQ uint32 // previously emitted mapped quality
	S     uint32 // current selector value
	QTot  uint32 // reserved for average-quality computations
	QLen  uint32 // reserved for average-quality computations
}

// Reset clears per-record state at a record boundary (QCtx, Delta, PrevQ
// and AddD to zero, P to length) and returns 0. It has no parameter block,
// so seeding `last` with pm.Context is done by the caller.
func (s *State) Reset(length uint32) uint32 {
	s.P = length
	s.AddD = 0
	s.Delta = 0
	s.QCtx = 0
	s.PrevQ = 0
	return 0
}

// Update folds quality symbol q (already mapped through QMap) into the
// running context, advances delta/prevq/p, and returns the masked 16-bit
// context index to use for the *next* symbol. PTab and DTab entries are
// expected pre-shifted into their final bit positions (PLoc/DLoc already
// applied) per the parameter block's speed optimisation; see
// ShiftTables.
//
// Delta increments even for the first byte of a record, since PrevQ resets
// to 0 at the record boundary: this quirk is required for round-trip
// exactness and must not be "fixed".
func Update(pm *fqzparam.Param, s *State, q uint32) uint32 {
	s.QCtx = (s.QCtx << uint(pm.QShift)) + pm.QTab[q]
	last := (s.QCtx & pm.QMask) << uint(pm.QLoc)

	pIdx := s.P
	if pIdx > 1023 {
		pIdx = 1023
	}
	last += pm.PTab[pIdx]

	dIdx := s.Delta
	if dIdx > 255 {
		dIdx = 255
	}
	last += pm.DTab[dIdx]

	last += s.S << uint(pm.SLoc)

	s.Delta += boolToUint32(s.PrevQ != q)
	s.PrevQ = q
	s.P--

	return last & (fqzparam.CtxSize - 1)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ShiftTables pre-shifts PTab/DTab into their final bit positions, a speed
// optimisation the encoder and decoder both apply after loading/building
// parameters and before the main coding loop. The wire format always holds
// the unshifted values (see fqzparam), so this must run exactly once on
// each freshly built or freshly decoded parameter block.
func ShiftTables(pm *fqzparam.Param) {
	for i := range pm.PTab {
		pm.PTab[i] <<= uint(pm.PLoc)
	}
	for i := range pm.DTab {
		pm.DTab[i] <<= uint(pm.DLoc)
	}
}
