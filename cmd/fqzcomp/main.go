// Command fqzcomp is a standalone test harness for the fqzcomp-qual codec:
// not a CRAM tool, just a way to drive Compress/Decompress from the shell
// the way the original TEST_MAIN did.
//
// Encoding (default) reads newline-terminated Phred+33 quality lines from
// stdin, each optionally followed by whitespace-separated `read2` and/or
// `sel=N` tokens, and writes one framed block to stdout. Decoding (-d)
// reverses that, re-emitting Phred+33 lines.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/fqzcomp/qual"
)

func main() {
	decode := pflag.BoolP("decode", "d", false, "decode a block instead of encoding one")
	strategy := pflag.IntP("strategy", "s", 0, "tuning strategy (0..4)")
	vers := pflag.IntP("vers", "V", 4, "stream format (3 or 4)")
	hexOverride := pflag.StringP("extra", "x", "", "12-nibble hex override for the custom strategy row")
	verbose := pflag.BoolP("verbose", "v", false, "log debug diagnostics to stderr")
	pflag.Parse()

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	var err error
	if *decode {
		err = runDecode(os.Stdin, os.Stdout, logger)
	} else {
		err = runEncode(os.Stdin, os.Stdout, *vers, *strategy, *hexOverride, logger)
	}
	if err != nil {
		logger.Error("fqzcomp failed", "err", err)
		os.Exit(1)
	}
}

// lineRecord mirrors the harness-level bookkeeping the test CLI needs to
// reconstitute lines after decode: not part of the wire format, just local
// framing around the block qual.Compress produces.
type lineRecord struct {
	length int
	read2  bool
	sel    uint32
}

func runEncode(r io.Reader, w io.Writer, vers, strategy int, hexOverride string, logger *log.Logger) error {
	lines, flat, err := parseLines(r)
	if err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}

	var custom *qual.StrategyPreset
	if hexOverride != "" {
		custom, err = decodeHexOverride(hexOverride)
		if err != nil {
			return fmt.Errorf("parsing -x override: %w", err)
		}
		strategy = strategyCustomIndex
		logger.Debug("using custom strategy row", "preset", *custom)
	}

	view := &qual.SliceView{Records: make([]qual.Record, len(lines))}
	offset := 0
	for i, l := range lines {
		rec := qual.Record{QualOffset: offset, Len: l.length}
		if l.read2 {
			rec.Flags |= qual.FlagRead2
		}
		rec.SetSelector(l.sel)
		view.Records[i] = rec
		offset += l.length
	}

	packedVers := (vers & 0xff) | (strategy << 8)
	compressed, err := qual.CompressWithOverride(packedVers, 0, view, flat, custom)
	if err != nil {
		return fmt.Errorf("compressing block: %w", err)
	}

	logger.Debug("encoded block", "records", len(lines), "in_bytes", len(flat), "out_bytes", len(compressed))

	return writeFramedBlock(w, lines, flat, compressed)
}

func runDecode(r io.Reader, w io.Writer, logger *log.Logger) error {
	lines, inSize, compressed, err := readFramedBlock(r)
	if err != nil {
		return fmt.Errorf("reading framed block: %w", err)
	}

	flat, err := qual.Decompress(compressed, inSize)
	if err != nil {
		return fmt.Errorf("decompressing block: %w", err)
	}

	logger.Debug("decoded block", "records", len(lines), "out_bytes", len(flat))

	bw := bufio.NewWriter(w)
	defer bw.Flush()
	offset := 0
	for _, l := range lines {
		q := flat[offset : offset+l.length]
		offset += l.length
		for _, b := range q {
			bw.WriteByte(b + 33)
		}
		if l.read2 {
			bw.WriteString(" read2")
		}
		if l.sel != 0 {
			fmt.Fprintf(bw, " sel=%d", l.sel)
		}
		bw.WriteByte('\n')
	}
	return nil
}

// parseLines reads Phred+33 quality lines plus their trailing read2/sel
// tokens and returns the per-line bookkeeping alongside the flattened raw
// (ASCII-33-removed) quality bytes.
func parseLines(r io.Reader) ([]lineRecord, []byte, error) {
	var lines []lineRecord
	var flat []byte

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		lr := lineRecord{length: len(fields[0])}
		for _, tok := range fields[1:] {
			switch {
			case tok == "read2":
				lr.read2 = true
			case strings.HasPrefix(tok, "sel="):
				v, err := strconv.ParseUint(tok[len("sel="):], 10, 32)
				if err != nil {
					return nil, nil, fmt.Errorf("bad selector token %q: %w", tok, err)
				}
				lr.sel = uint32(v)
			}
		}
		for i := 0; i < len(fields[0]); i++ {
			flat = append(flat, fields[0][i]-33)
		}
		lines = append(lines, lr)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return lines, flat, nil
}

// writeFramedBlock emits the harness-level framing: record count and
// per-record (length, read2, sel) triples, then the original's
// length-prefix pair (in2_len, out_len) around the compressed payload, so
// a single CLI invocation round-trips one independent block.
func writeFramedBlock(w io.Writer, lines []lineRecord, flat, compressed []byte) error {
	var hdr []byte
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(lines)))
	for _, l := range lines {
		hdr = binary.LittleEndian.AppendUint32(hdr, uint32(l.length))
		var flags uint32
		if l.read2 {
			flags |= 1
		}
		hdr = binary.LittleEndian.AppendUint32(hdr, flags)
		hdr = binary.LittleEndian.AppendUint32(hdr, l.sel)
	}

	if _, err := w.Write(hdr); err != nil {
		return err
	}
	var lenPair [8]byte
	binary.LittleEndian.PutUint32(lenPair[0:4], uint32(len(flat)))
	binary.LittleEndian.PutUint32(lenPair[4:8], uint32(len(compressed)))
	if _, err := w.Write(lenPair[:]); err != nil {
		return err
	}
	_, err := w.Write(compressed)
	return err
}

func readFramedBlock(r io.Reader) ([]lineRecord, int, []byte, error) {
	br := bufio.NewReader(r)

	nrec, err := readUint32(br)
	if err != nil {
		return nil, 0, nil, err
	}
	lines := make([]lineRecord, nrec)
	for i := range lines {
		length, err := readUint32(br)
		if err != nil {
			return nil, 0, nil, err
		}
		flags, err := readUint32(br)
		if err != nil {
			return nil, 0, nil, err
		}
		sel, err := readUint32(br)
		if err != nil {
			return nil, 0, nil, err
		}
		lines[i] = lineRecord{length: int(length), read2: flags&1 != 0, sel: sel}
	}

	inSize, err := readUint32(br)
	if err != nil {
		return nil, 0, nil, err
	}
	outSize, err := readUint32(br)
	if err != nil {
		return nil, 0, nil, err
	}

	compressed := make([]byte, outSize)
	if _, err := io.ReadFull(br, compressed); err != nil {
		return nil, 0, nil, err
	}
	return lines, int(inSize), compressed, nil
}

// strategyCustomIndex is the "custom" strategy row -x overrides, the last
// entry of fqzstats.Presets (exposed indirectly via qual.StrategyPreset).
const strategyCustomIndex = 4

// decodeHexOverride parses a 12-nibble hex string (with or without a "0x"
// prefix) into a strategy row, one nibble per field in strat_opts column
// order: qbits, qshift, pbits, pshift, dbits, dshift, qloc, sloc, ploc,
// dloc, do_r2, do_qa. Nibbles are unsigned (0..15); fields the source
// otherwise allows negative (pshift, do_qa) cannot be set negative this
// way, matching the original -x's own limitation.
func decodeHexOverride(hex string) (*qual.StrategyPreset, error) {
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	var p qual.StrategyPreset
	fields := []*int{
		&p.QBits, &p.QShift, &p.PBits, &p.PShift, &p.DBits, &p.DShift,
		&p.QLoc, &p.SLoc, &p.PLoc, &p.DLoc, &p.DoR2, &p.DoQA,
	}
	for i, ch := range hex {
		if i >= len(fields) {
			break
		}
		v, err := strconv.ParseUint(string(ch), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex digit %q at position %d: %w", ch, i, err)
		}
		*fields[i] = int(v)
	}
	return &p, nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
