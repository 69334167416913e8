package preview

import (
	"bufio"
	"errors"
	"io"
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

const maxAccessUnit = 4 << 20

// annexBReader splits an H.264 Annex B byte stream into access units.
type annexBReader struct {
	r       *bufio.Reader
	started bool   // positioned just after a start code
	pending []byte // first NAL unit of the next access unit
}

func newAnnexBReader(r io.Reader) *annexBReader {
	return &annexBReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// ReadAccessUnit returns the next access unit with 4-byte start codes. A
// unit ends where a new primary picture or its leading SEI/SPS/PPS/AUD
// begins.
func (a *annexBReader) ReadAccessUnit() ([]byte, error) {
	var au []byte
	hasVCL := false
	if a.pending != nil {
		au = appendNAL(au, a.pending)
		hasVCL = isVCL(a.pending)
		a.pending = nil
	}
	for {
		nal, err := a.nextNAL()
		if err != nil {
			if errors.Is(err, io.EOF) && len(au) > 0 {
				return au, nil
			}
			return nil, err
		}
		if len(nal) == 0 {
			continue
		}
		if hasVCL && startsAccessUnit(nal) {
			a.pending = nal
			return au, nil
		}
		au = appendNAL(au, nal)
		hasVCL = hasVCL || isVCL(nal)
		if len(au) > maxAccessUnit {
			return au, nil
		}
	}
}

func nalType(nal []byte) byte { return nal[0] & 0x1F }

func isVCL(nal []byte) bool {
	t := nalType(nal)
	return t >= 1 && t <= 5
}

// startsAccessUnit reports whether nal, following a coded picture, opens
// the next access unit.
func startsAccessUnit(nal []byte) bool {
	switch t := nalType(nal); {
	case t >= 1 && t <= 5:
		// first_mb_in_slice == 0 is ue(v) "1"
		return len(nal) > 1 && nal[1]&0x80 != 0
	case t >= 6 && t <= 9:
		return true
	default:
		return false
	}
}

func appendNAL(au, nal []byte) []byte {
	au = append(au, annexBStartCode...)
	return append(au, nal...)
}

// nextNAL returns the payload between the current start code and the next.
// The final unit of the stream is returned with a nil error; the call after
// it returns io.EOF.
func (a *annexBReader) nextNAL() ([]byte, error) {
	if !a.started {
		zeros := 0
		for {
			b, err := a.r.ReadByte()
			if err != nil {
				return nil, err
			}
			if b == 0 {
				zeros++
				continue
			}
			if b == 1 && zeros >= 2 {
				break
			}
			zeros = 0
		}
		a.started = true
	}

	var buf []byte
	for {
		b, err := a.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				a.started = false
				return trimZeros(buf), nil
			}
			return nil, err
		}
		buf = append(buf, b)
		l := len(buf)
		if l >= 3 && buf[l-3] == 0 && buf[l-2] == 0 && buf[l-1] == 1 {
			return trimZeros(buf[:l-3]), nil
		}
	}
}

// trimZeros drops trailing zero bytes: the extra zero of a 4-byte start
// code and any trailing_zero_8bits.
func trimZeros(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
