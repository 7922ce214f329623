package stream

// The SpikerBox serial protocol packs each sample into two bytes. The first
// byte of a sample has its high bit set and carries the upper seven bits;
// the second byte carries the lower seven. A byte with the high bit clear
// that arrives outside a pair is resynchronization noise and is skipped.

// sampleMidpoint centres the unsigned wire value around zero so downstream
// detection sees a bipolar waveform.
const sampleMidpoint = 8192

// FrameDecoder reassembles samples from a SpikerBox byte stream. It keeps a
// trailing partial sample between calls so chunk boundaries may fall
// anywhere. The zero value is ready to use; not safe for concurrent use.
type FrameDecoder struct {
	pending byte
	have    bool
}

// Decode appends the samples encoded in data to dst and returns the
// extended slice. Incomplete trailing bytes are buffered for the next call.
func (d *FrameDecoder) Decode(dst []float64, data []byte) []float64 {
	for _, b := range data {
		if b&0x80 != 0 {
			// Start of a new sample. An unconsumed pending byte means the
			// previous sample lost its low byte; drop it and resync.
			d.pending = b
			d.have = true
			continue
		}
		if !d.have {
			continue
		}
		raw := int(d.pending&0x7F)*128 + int(b)
		dst = append(dst, float64(raw-sampleMidpoint))
		d.have = false
	}
	return dst
}

// DecodeFrames decodes a self-contained SpikerBox byte buffer. Partial
// samples at either end are discarded.
func DecodeFrames(data []byte) []float64 {
	var d FrameDecoder
	return d.Decode(nil, data)
}
