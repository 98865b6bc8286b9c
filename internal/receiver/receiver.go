// Package receiver implements the reactive side of the link: for every
// well-formed inbound frame it verifies integrity, filters duplicates against
// the sending peer's cursor, and answers with exactly one ACK or NACK.
//
// Malformed frames get no reply; the sender's timeout drives its retry.
package receiver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Corrupter mutates a payload before integrity checking. It reports whether
// anything changed.
type Corrupter interface {
	Corrupt(payload []byte) ([]byte, bool)
}

type noCorruption struct{}

func (noCorruption) Corrupt(p []byte) ([]byte, bool) { return p, false }

// Delivery is one accepted, non-duplicate message.
type Delivery struct {
	Peer     string
	Sequence protocol.Bit
	Payload  []byte
}

// PacketConn is the listening side of the datagram transport.
type PacketConn interface {
	ReadFrom(ctx context.Context) ([]byte, net.Addr, error)
	WriteTo(ctx context.Context, b []byte, addr net.Addr) error
}

type Option func(*Receiver)

func WithCorrupter(c Corrupter) Option {
	return func(r *Receiver) {
		if c != nil {
			r.corrupter = c
		}
	}
}

func WithDeliver(fn func(Delivery)) Option {
	return func(r *Receiver) { r.deliver = fn }
}

func WithObserver(o observability.Observer) Option {
	return func(r *Receiver) {
		if o != nil {
			r.observer = o
		}
	}
}

func WithCursors(t *CursorTable) Option {
	return func(r *Receiver) {
		if t != nil {
			r.cursors = t
		}
	}
}

// Stats are process-lifetime frame counters.
type Stats struct {
	Received    uint64 `json:"received"`
	Accepted    uint64 `json:"accepted"`
	Duplicates  uint64 `json:"duplicates"`
	Nacked      uint64 `json:"nacked"`
	Malformed   uint64 `json:"malformed"`
	Corruptions uint64 `json:"corruptions"`
}

type Receiver struct {
	cursors   *CursorTable
	corrupter Corrupter
	deliver   func(Delivery)
	observer  observability.Observer

	received    atomic.Uint64
	accepted    atomic.Uint64
	duplicates  atomic.Uint64
	nacked      atomic.Uint64
	malformed   atomic.Uint64
	corruptions atomic.Uint64
}

func New(opts ...Option) *Receiver {
	r := &Receiver{
		cursors:   NewCursorTable(),
		corrupter: noCorruption{},
		observer:  observability.Nop,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Receiver) Cursors() *CursorTable {
	return r.cursors
}

func (r *Receiver) Stats() Stats {
	return Stats{
		Received:    r.received.Load(),
		Accepted:    r.accepted.Load(),
		Duplicates:  r.duplicates.Load(),
		Nacked:      r.nacked.Load(),
		Malformed:   r.malformed.Load(),
		Corruptions: r.corruptions.Load(),
	}
}

// Handle processes one datagram from peer. ok is false when no reply must be sent.
func (r *Receiver) Handle(peer string, datagram []byte) (reply []byte, ok bool) {
	r.received.Add(1)

	f, err := frame.Decode(datagram)
	if err != nil {
		r.malformed.Add(1)
		r.emit(observability.Event{Kind: observability.EventFrameMalformed, Peer: peer, Reply: string(datagram), Err: err})
		return nil, false
	}

	payload, corrupted := r.corrupter.Corrupt(f.Payload)
	if corrupted {
		r.corruptions.Add(1)
		r.emit(observability.Event{Kind: observability.EventCorruptionInjected, Peer: peer, Sequence: f.Sequence, Payload: payload})
	}

	if !(frame.Frame{Payload: payload, Checksum: f.Checksum}).Verify() {
		r.nacked.Add(1)
		r.emit(observability.Event{
			Kind:     observability.EventIntegrityMismatch,
			Peer:     peer,
			Sequence: f.Sequence,
			Payload:  payload,
			Err:      protocol.ErrIntegrityMismatch,
		})
		return frame.EncodeAck(frame.Ack{Kind: protocol.AckKindNACK, Sequence: f.Sequence}), true
	}

	if r.cursors.Accept(peer, f.Sequence) {
		r.accepted.Add(1)
		r.emit(observability.Event{Kind: observability.EventFrameAccepted, Peer: peer, Sequence: f.Sequence, Payload: payload})
		if r.deliver != nil {
			r.deliver(Delivery{Peer: peer, Sequence: f.Sequence, Payload: payload})
		}
	} else {
		r.duplicates.Add(1)
		r.emit(observability.Event{Kind: observability.EventFrameDuplicate, Peer: peer, Sequence: f.Sequence, Payload: payload})
	}
	return frame.EncodeAck(frame.Ack{Kind: protocol.AckKindACK, Sequence: f.Sequence}), true
}

// Serve answers datagrams from conn until ctx ends or conn is closed. Errors on
// a single datagram never stop the loop.
func (r *Receiver) Serve(ctx context.Context, conn PacketConn) error {
	for {
		datagram, addr, err := conn.ReadFrom(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn().Err(err).Msg("receiver read failed")
			continue
		}

		reply, ok := r.Handle(addr.String(), datagram)
		if !ok {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, time.Second)
		err = conn.WriteTo(wctx, reply, addr)
		cancel()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn().Err(err).Str("peer", addr.String()).Msg("receiver reply failed")
		}
	}
}

func (r *Receiver) emit(e observability.Event) {
	e.Role = observability.RoleReceiver
	e.At = time.Now()
	r.observer.Observe(e)
}
