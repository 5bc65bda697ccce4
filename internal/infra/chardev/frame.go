package chardev

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"ledir/internal/domain"
)

const codeLen = 0x200

// Frame is the little-endian record the irblaster driver reads on write.
// Widths are in microseconds; Code is an ASCII string of '0' and '1' bits.
type Frame struct {
	LeadingPulseWidth  uint32
	LeadingGapWidth    uint32
	OnePulseWidth      uint32
	OneGapWidth        uint32
	ZeroPulseWidth     uint32
	ZeroGapWidth       uint32
	TrailingPulseWidth uint32
	Frequency          uint32
	DCN                uint32
	DCM                uint32
	Code               [codeLen]byte
}

// FrameSize is the encoded size of a Frame.
var FrameSize = binary.Size(Frame{})

// NewFrame builds the driver record for data sent with format.
func NewFrame(format domain.CodeFormat, data []byte) (Frame, error) {
	bits := len(data) * 8
	if bits >= codeLen {
		return Frame{}, fmt.Errorf("code too long: %d bits", bits)
	}

	tb := uint32(format.Timebase)
	f := Frame{
		LeadingPulseWidth:  at(format.Preamble, 0) * tb,
		LeadingGapWidth:    at(format.Preamble, 1) * tb,
		OnePulseWidth:      at(format.One, 0) * tb,
		OneGapWidth:        at(format.One, 1) * tb,
		ZeroPulseWidth:     at(format.Zero, 0) * tb,
		ZeroGapWidth:       at(format.Zero, 1) * tb,
		TrailingPulseWidth: at(format.Postamble, 0) * tb,
		Frequency:          uint32(format.Frequency),
		DCN:                uint32(math.Round(format.DutyCycle * 100)),
		DCM:                100,
	}

	i := 0
	for _, b := range data {
		for n := 0; n < 8; n++ {
			shift := n
			if format.MSBFirst {
				shift = 7 - n
			}
			if b&(1<<shift) != 0 {
				f.Code[i] = '1'
			} else {
				f.Code[i] = '0'
			}
			i++
		}
	}

	return f, nil
}

// MarshalBinary encodes f in the driver's byte order.
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func at(v []int, i int) uint32 {
	if i >= len(v) || v[i] < 0 {
		return 0
	}
	return uint32(v[i])
}
