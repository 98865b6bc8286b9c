package protocol

import "errors"

var (
	ErrMalformedFrame     = errors.New("protocol: malformed frame")
	ErrIntegrityMismatch  = errors.New("protocol: integrity mismatch")
	ErrTimeout            = errors.New("protocol: reply timeout")
	ErrDeliveryExhausted  = errors.New("protocol: delivery attempts exhausted")
	ErrSequenceMismatch   = errors.New("protocol: sequence mismatch")
	ErrPayloadDelimiter   = errors.New("protocol: payload contains frame delimiter")
	ErrPayloadEncoding    = errors.New("protocol: payload is not valid UTF-8")
	ErrInvalidSequenceBit = errors.New("protocol: invalid sequence bit")
)
