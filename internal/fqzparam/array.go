package fqzparam

// writeArray stores a monotone-non-decreasing table (by value, as a function
// of index) as a sequence of run-lengths, then doubly RLEs the resulting
// byte stream. It is the Go port of the source's store_array: for each
// destination value j = 0, 1, 2, ..., it counts the run of consecutive
// input entries equal to j and emits that count split into 255-runs, then
// run-length codes the flattened stream with postRLE.
func writeArray(array []uint32, size int) []byte {
	flat := make([]byte, 0, size/2+4)
	i, j := 0, 0
	for i < size {
		runStart := i
		for i < size && array[i] == uint32(j) {
			i++
		}
		runLen := i - runStart
		for {
			r := runLen
			if r > 255 {
				r = 255
			}
			flat = append(flat, byte(r))
			runLen -= r
			if r != 255 {
				break
			}
		}
		j++
	}
	return postRLE(flat)
}

// postRLE shortens runs of identical bytes in in: whenever two consecutive
// bytes are equal, both are kept and the next output byte records how many
// additional copies followed them (0 for a run of exactly two).
func postRLE(in []byte) []byte {
	k := len(in)
	out := make([]byte, k)
	i, j := 0, 0
	last := -1
	for j < k {
		out[i] = in[j]
		j++
		if int(out[i]) == last {
			n := j
			for j < k && in[j] == byte(last) {
				j++
			}
			i++
			out[i] = byte(j - n)
		} else {
			last = int(out[i])
		}
		i++
	}
	return out[:i]
}

// readArray inverts writeArray, reconstructing array[0:size] from in and
// returning the number of bytes consumed. It is the Go port of the source's
// read_array, including its three-reads-means-a-multiplier handling of a
// post-RLE repeat-count byte landing inside a run of literal 255 bytes.
func readArray(in []byte, array []uint32, size int) int {
	i, j, k := 0, 0, 0
	last := -1
	r2 := 0
	for j < size {
		var runLen int
		if r2 > 0 {
			runLen = last
		} else {
			runLen = 0
			loop := 0
			for {
				r := int(in[k])
				k++
				loop++
				if loop == 3 {
					runLen += r * 255
					r = 255
				} else {
					runLen += r
				}
				if r != 255 {
					break
				}
			}
		}
		if r2 == 0 && runLen == last {
			r2 = int(in[k])
			k++
		} else {
			if r2 > 0 {
				r2--
			}
			last = runLen
		}

		for runLen > 0 && j < size {
			runLen--
			array[j] = uint32(i)
			j++
		}
		i++
	}
	return k
}
