// Package rangecoder implements a carry-propagating arithmetic coder over a
// 32-bit interval, plus the small adaptive frequency models that ride on top
// of it. The coder itself is symbol-alphabet agnostic: callers supply a
// cumulative frequency, a symbol frequency and a total, and the coder
// narrows or reads the interval accordingly.
package rangecoder

const (
	topValue = 1 << 24
	botValue = 1 << 16
)

// Encoder narrows a 32-bit interval as symbols are encoded and buffers the
// renormalised output bytes, propagating carries into already-emitted bytes
// via a pending run of 0xFF bytes.
type Encoder struct {
	low       uint64
	rng       uint32
	cache     byte
	cacheSize uint64
	out       []byte
	started   bool
}

// NewEncoder returns a ready-to-use encoder: it has already called Start.
// Start stays a separate method to mirror the source's start_encode/encode
// split, and calling it again reuses the encoder's output buffer.
func NewEncoder() *Encoder {
	e := &Encoder{}
	e.Start()
	return e
}

// Start primes the encoder state, discarding any previously buffered output.
func (e *Encoder) Start() {
	e.low = 0
	e.rng = 0xFFFFFFFF
	e.cache = 0
	e.cacheSize = 1
	e.out = e.out[:0]
	e.started = true
}

// Encode narrows the interval to the sub-range [cum, cum+freq) of [0, tot)
// and renormalises, emitting bytes as the top of the interval stabilises.
func (e *Encoder) Encode(cum, freq, tot uint32) {
	r := e.rng / tot
	e.low += uint64(r) * uint64(cum)
	e.rng = r * freq
	for e.rng < topValue {
		e.rng <<= 8
		e.shiftLow()
	}
}

// shiftLow emits the top byte of low, propagating any pending carry into
// previously buffered 0xFF bytes.
func (e *Encoder) shiftLow() {
	if uint32(e.low>>32) != 0 || e.low < 0xFF000000 {
		carry := byte(e.low >> 32)
		temp := e.cache
		for {
			e.out = append(e.out, temp+carry)
			temp = 0xFF
			e.cacheSize--
			if e.cacheSize == 0 {
				break
			}
		}
		e.cache = byte(e.low >> 24)
	}
	e.cacheSize++
	e.low = (e.low << 8) & 0xFFFFFFFF
}

// Finish flushes the remaining pending bytes and returns the encoded payload.
// The returned slice is owned by the encoder until the next Start call.
func (e *Encoder) Finish() []byte {
	for i := 0; i < 5; i++ {
		e.shiftLow()
	}
	return e.out
}

// Decoder mirrors Encoder, consuming bytes from an input buffer to refill a
// 32-bit code register as symbols are decoded.
type Decoder struct {
	rng uint32
	code uint32
	in  []byte
	pos int
}

// NewDecoder returns a decoder over in and primes its initial state.
func NewDecoder(in []byte) *Decoder {
	d := &Decoder{}
	d.SetInput(in)
	d.Start()
	return d
}

// SetInput rebinds the decoder to a new input buffer without resetting the
// code/range registers (mirrors RC_SetInput, kept separate from start).
func (d *Decoder) SetInput(in []byte) {
	d.in = in
	d.pos = 0
}

// Start primes the decoder's code register by priming with 5 bytes, the
// first of which is always zero by construction of Encoder.Start/Finish.
func (d *Decoder) Start() {
	d.rng = 0xFFFFFFFF
	d.code = 0
	d.nextByte() // discard the leading synchronisation byte
	for i := 0; i < 4; i++ {
		d.code = (d.code << 8) | uint32(d.nextByte())
	}
}

func (d *Decoder) nextByte() byte {
	if d.pos >= len(d.in) {
		d.pos++
		return 0
	}
	b := d.in[d.pos]
	d.pos++
	return b
}

// GetFreq returns a value in [0, tot) identifying which symbol's cumulative
// range contains the current code point; callers scan their model's
// cumulative table to find the matching symbol before calling Decode.
func (d *Decoder) GetFreq(tot uint32) uint32 {
	d.rng /= tot
	f := d.code / d.rng
	if f >= tot {
		f = tot - 1
	}
	return f
}

// Decode narrows the interval to [cum, cum+freq) and renormalises, consuming
// input bytes as needed. Must be called with the same (cum, freq, tot) the
// encoder used, determined via GetFreq.
func (d *Decoder) Decode(cum, freq, tot uint32) {
	d.code -= cum * d.rng
	d.rng *= freq
	for d.rng < topValue {
		d.code = (d.code << 8) | uint32(d.nextByte())
		d.rng <<= 8
	}
}

// BytesConsumed reports how many input bytes have been read so far,
// including the 5 priming bytes.
func (d *Decoder) BytesConsumed() int {
	return d.pos
}

// Exhausted reports whether the decoder has read more than five bytes past
// the end of its input (reads past the end yield zero bytes), a sign of a
// corrupt or truncated stream.
func (d *Decoder) Exhausted() bool {
	return d.pos > len(d.in)+5
}
