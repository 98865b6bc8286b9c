// Package sender drives one message at a time through the stop-and-wait cycle:
// transmit, wait for a reply within the attempt timeout, and retransmit on NACK,
// timeout or an unusable reply until the attempt budget is spent.
package sender

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/frame"
	"github.com/danmuck/arqlink/internal/protocol/session"
	"github.com/google/uuid"
)

// Transport is a connected datagram channel to one receiver.
type Transport interface {
	Send(ctx context.Context, b []byte) error
	Recv(ctx context.Context) ([]byte, error)
}

type Config struct {
	Retry  session.RetryPolicy
	Limits frame.Limits
}

func DefaultConfig() Config {
	return Config{
		Retry:  session.DefaultRetryPolicy(),
		Limits: frame.DefaultLimits(),
	}
}

// Result describes a finished delivery session, successful or not.
type Result struct {
	SessionID string
	Sequence  protocol.Bit
	Attempts  int
	Delivered bool
	LastError error
}

type Option func(*Sender)

func WithObserver(o observability.Observer) Option {
	return func(s *Sender) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRand sets the source used for backoff jitter.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sender) { s.rng = rng }
}

func WithSessionIDs(next func() string) Option {
	return func(s *Sender) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithInitialSequence sets the first sequence bit used by SendNext.
func WithInitialSequence(seq protocol.Bit) Option {
	return func(s *Sender) { s.next = seq }
}

type Sender struct {
	tr       Transport
	cfg      Config
	observer observability.Observer
	rng      *rand.Rand
	newID    func() string

	// inflight serializes Send: stop-and-wait allows one unacknowledged frame.
	inflight sync.Mutex

	mu   sync.Mutex
	next protocol.Bit
}

func New(tr Transport, cfg Config, opts ...Option) *Sender {
	s := &Sender{
		tr:       tr,
		cfg:      cfg,
		observer: observability.Nop,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextSequence is the bit SendNext will use for its next message.
func (s *Sender) NextSequence() protocol.Bit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// SendNext sends payload with the stream's current sequence bit and flips the
// bit once the receiver acknowledges it. An abandoned message keeps the bit.
func (s *Sender) SendNext(ctx context.Context, payload []byte) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.Send(ctx, s.next, payload)
	if err == nil {
		s.next = s.next.Flip()
	}
	return res, err
}

// Send delivers payload under sequence seq. A terminal failure is returned as
// an error wrapping protocol.ErrDeliveryExhausted alongside the Result; the
// message is then lost as far as the protocol is concerned.
func (s *Sender) Send(ctx context.Context, seq protocol.Bit, payload []byte) (Result, error) {
	if !seq.Valid() {
		return Result{}, fmt.Errorf("%w: %d", protocol.ErrInvalidSequenceBit, seq)
	}
	if frame.ContainsDelimiter(payload) {
		return Result{}, protocol.ErrPayloadDelimiter
	}
	if !utf8.Valid(payload) {
		return Result{}, protocol.ErrPayloadEncoding
	}
	wire := frame.Encode(frame.New(seq, payload))
	if err := frame.CheckSize(wire, s.cfg.Limits); err != nil {
		return Result{}, err
	}

	s.inflight.Lock()
	defer s.inflight.Unlock()

	res := Result{SessionID: s.newID(), Sequence: seq}
	maxAttempts := s.cfg.Retry.MaxAttempts
	attempts, err := session.Retry(ctx, s.cfg.Retry, s.rng, func(actx context.Context, attempt int) error {
		s.emit(observability.Event{
			Kind:        observability.EventAttemptStarted,
			SessionID:   res.SessionID,
			Sequence:    seq,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Payload:     payload,
		})
		err := s.attempt(actx, res.SessionID, seq, wire, attempt, maxAttempts)
		if err != nil && !session.IsPermanent(err) {
			res.LastError = err
		}
		return err
	})
	res.Attempts = attempts

	if err != nil {
		if res.LastError == nil {
			res.LastError = err
		}
		s.emit(observability.Event{
			Kind:        observability.EventAbandoned,
			SessionID:   res.SessionID,
			Sequence:    seq,
			Attempt:     attempts,
			MaxAttempts: maxAttempts,
			Err:         err,
		})
		return res, err
	}

	res.Delivered = true
	res.LastError = nil
	s.emit(observability.Event{
		Kind:        observability.EventDelivered,
		SessionID:   res.SessionID,
		Sequence:    seq,
		Attempt:     attempts,
		MaxAttempts: maxAttempts,
	})
	return res, nil
}

// attempt is one PREPARING -> AWAITING_REPLY pass. nil means DELIVERED.
func (s *Sender) attempt(ctx context.Context, id string, seq protocol.Bit, wire []byte, attempt, maxAttempts int) error {
	if err := s.tr.Send(ctx, wire); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return session.Permanent(err)
		}
		return fmt.Errorf("transmit: %w", err)
	}

	raw, err := s.tr.Recv(ctx)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return session.Permanent(err)
		}
		if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
			err = protocol.ErrTimeout
		} else {
			err = fmt.Errorf("%w: %w", protocol.ErrTimeout, err)
		}
		s.emit(observability.Event{
			Kind:        observability.EventReplyTimeout,
			SessionID:   id,
			Sequence:    seq,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Err:         err,
		})
		return err
	}

	reply := observability.Event{
		Kind:        observability.EventReplyReceived,
		SessionID:   id,
		Sequence:    seq,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Reply:       string(raw),
	}
	ack, err := frame.DecodeAck(raw)
	if err != nil {
		reply.Err = err
		s.emit(reply)
		return err
	}

	switch {
	case ack.Kind == protocol.AckKindNACK:
		err = fmt.Errorf("%w: receiver rejected seq %v", protocol.ErrIntegrityMismatch, ack.Sequence)
	case ack.Sequence != seq:
		err = fmt.Errorf("%w: got ACK %v, want %v", protocol.ErrSequenceMismatch, ack.Sequence, seq)
	}
	reply.Err = err
	s.emit(reply)
	return err
}

func (s *Sender) emit(e observability.Event) {
	e.Role = observability.RoleSender
	e.At = time.Now()
	s.observer.Observe(e)
}
