package rangecoder

// Model is an adaptive cumulative-frequency table over a small alphabet
// (2, 256, or QMAX=256 symbols in this codec). Frequencies start uniform
// over [0, nsym) and increment on use; once the running total would exceed
// maxTotal all frequencies are halved, preserving a minimum of 1 so no
// symbol ever starves. The update rule is deterministic so encoder and
// decoder stay in lockstep as long as they see the same symbol sequence.
type Model struct {
	freq  []uint16
	total uint32
}

const (
	stepSize    = 16
	maxTotal    = 1 << 16
)

// NewModel returns a model over nsym symbols with uniform initial counts.
func NewModel(nsym int) *Model {
	m := &Model{freq: make([]uint16, nsym)}
	for i := range m.freq {
		m.freq[i] = 1
	}
	m.total = uint32(nsym)
	return m
}

// cumFreq returns the cumulative frequency of all symbols below sym.
func (m *Model) cumFreq(sym int) uint32 {
	var cum uint32
	for i := 0; i < sym; i++ {
		cum += uint32(m.freq[i])
	}
	return cum
}

// EncodeSymbol encodes sym through rc and updates the model.
func (m *Model) EncodeSymbol(rc *Encoder, sym int) {
	cum := m.cumFreq(sym)
	rc.Encode(cum, uint32(m.freq[sym]), m.total)
	m.update(sym)
}

// DecodeSymbol decodes the next symbol from rc and updates the model.
func (m *Model) DecodeSymbol(rc *Decoder) int {
	f := rc.GetFreq(m.total)
	var cum uint32
	sym := 0
	for sym < len(m.freq)-1 {
		next := cum + uint32(m.freq[sym])
		if f < next {
			break
		}
		cum = next
		sym++
	}
	rc.Decode(cum, uint32(m.freq[sym]), m.total)
	m.update(sym)
	return sym
}

func (m *Model) update(sym int) {
	if m.total+stepSize > maxTotal {
		var tot uint32
		for i := range m.freq {
			m.freq[i] = (m.freq[i] + 1) / 2
			tot += uint32(m.freq[i])
		}
		m.total = tot
	}
	m.freq[sym] += stepSize
	m.total += stepSize
}

// NewModel2 is a binary alphabet model, used for the revcomp and dup flags.
func NewModel2() *Model { return NewModel(2) }

// NewModel256 is a 256-symbol model used for length bytes, the selector and
// (with a smaller nsym) the quality alphabet itself.
func NewModel256(nsym int) *Model { return NewModel(nsym) }
