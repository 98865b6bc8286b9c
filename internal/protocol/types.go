package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Bit is the alternating stop-and-wait sequence identifier.
type Bit uint8

const (
	Bit0 Bit = 0
	Bit1 Bit = 1
)

func (b Bit) Flip() Bit {
	return b ^ 1
}

func (b Bit) Valid() bool {
	return b == Bit0 || b == Bit1
}

func (b Bit) String() string {
	return strconv.Itoa(int(b))
}

// ParseBit accepts only the integers 0 and 1.
func ParseBit(raw string) (Bit, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSequenceBit, raw)
	}
	switch n {
	case 0:
		return Bit0, nil
	case 1:
		return Bit1, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidSequenceBit, n)
	}
}

// AckKind is the reply verdict token.
type AckKind string

const (
	AckKindACK  AckKind = "ACK"
	AckKindNACK AckKind = "NACK"
)

func ParseAckKind(raw string) (AckKind, bool) {
	switch AckKind(raw) {
	case AckKindACK:
		return AckKindACK, true
	case AckKindNACK:
		return AckKindNACK, true
	default:
		return "", false
	}
}
