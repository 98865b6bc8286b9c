package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/crc"
)

const (
	// Delimiter separates the three data frame fields. Payloads must not contain it;
	// the codec does not check.
	Delimiter = '|'
	// MaxDatagramSize bounds one datagram in either direction.
	MaxDatagramSize = 1024
)

var ErrDatagramTooLarge = errors.New("frame: datagram too large")

// Frame is one data unit: "<seq>|<payload>|<CRC as 4 uppercase hex digits>".
type Frame struct {
	Sequence protocol.Bit
	Payload  []byte
	Checksum uint16
}

// Ack is one reply: "ACK <seq>" or "NACK <seq>".
type Ack struct {
	Kind     protocol.AckKind
	Sequence protocol.Bit
}

// Limits constrains datagram sizes.
type Limits struct {
	MaxDatagramBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxDatagramBytes: MaxDatagramSize}
}

// New builds a frame whose checksum covers payload.
func New(seq protocol.Bit, payload []byte) Frame {
	return Frame{Sequence: seq, Payload: payload, Checksum: crc.Checksum(payload)}
}

// Verify recomputes the payload checksum and compares it to the carried one.
func (f Frame) Verify() bool {
	return crc.Checksum(f.Payload) == f.Checksum
}

func (f Frame) String() string {
	return string(Encode(f))
}

func Encode(f Frame) []byte {
	var buf bytes.Buffer
	buf.Grow(len(f.Payload) + 8)
	buf.WriteString(f.Sequence.String())
	buf.WriteByte(Delimiter)
	buf.Write(f.Payload)
	buf.WriteByte(Delimiter)
	fmt.Fprintf(&buf, "%04X", f.Checksum)
	return buf.Bytes()
}

// Decode validates structure only; it never checks the checksum.
func Decode(b []byte) (Frame, error) {
	if !utf8.Valid(b) {
		return Frame{}, fmt.Errorf("%w: not utf-8 text", protocol.ErrMalformedFrame)
	}
	parts := bytes.Split(b, []byte{Delimiter})
	if len(parts) != 3 {
		return Frame{}, fmt.Errorf("%w: expected 3 fields, got %d", protocol.ErrMalformedFrame, len(parts))
	}
	seq, err := protocol.ParseBit(string(parts[0]))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: sequence: %v", protocol.ErrMalformedFrame, err)
	}
	sum, err := strconv.ParseUint(strings.TrimSpace(string(parts[2])), 16, 16)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: checksum %q", protocol.ErrMalformedFrame, parts[2])
	}
	payload := make([]byte, len(parts[1]))
	copy(payload, parts[1])
	return Frame{Sequence: seq, Payload: payload, Checksum: uint16(sum)}, nil
}

func EncodeAck(a Ack) []byte {
	return []byte(string(a.Kind) + " " + a.Sequence.String())
}

func DecodeAck(b []byte) (Ack, error) {
	fields := strings.Fields(string(b))
	if len(fields) != 2 {
		return Ack{}, fmt.Errorf("%w: expected 2 reply tokens, got %d", protocol.ErrMalformedFrame, len(fields))
	}
	kind, ok := protocol.ParseAckKind(fields[0])
	if !ok {
		return Ack{}, fmt.Errorf("%w: reply kind %q", protocol.ErrMalformedFrame, fields[0])
	}
	seq, err := protocol.ParseBit(fields[1])
	if err != nil {
		return Ack{}, fmt.Errorf("%w: reply sequence: %v", protocol.ErrMalformedFrame, err)
	}
	return Ack{Kind: kind, Sequence: seq}, nil
}

// ContainsDelimiter reports whether payload would break frame field splitting.
func ContainsDelimiter(payload []byte) bool {
	return bytes.IndexByte(payload, Delimiter) >= 0
}

func CheckSize(b []byte, limits Limits) error {
	if limits.MaxDatagramBytes > 0 && len(b) > limits.MaxDatagramBytes {
		return fmt.Errorf("%w: %d > %d", ErrDatagramTooLarge, len(b), limits.MaxDatagramBytes)
	}
	return nil
}
