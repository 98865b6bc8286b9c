// Package transport carries datagrams between sender and receiver over UDP.
//
// A dialed Conn talks to one remote (Send/Recv); a listening Conn serves many
// (ReadFrom/WriteTo). Context deadlines become socket deadlines and context
// cancellation unblocks a pending read.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/arqlink/internal/protocol/frame"
)

var (
	// ErrClosed is net.ErrClosed so callers need not import this package to detect it.
	ErrClosed     = net.ErrClosed
	ErrNotDialed  = errors.New("transport: connection has no fixed remote")
	ErrNoResponse = errors.New("transport: read deadline exceeded")
)

type Conn struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	limits frame.Limits

	mu     sync.Mutex
	closed bool
}

func Dial(addr string) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &Conn{conn: conn, remote: raddr, limits: frame.DefaultLimits()}, nil
}

func Listen(addr string) (*Conn, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Conn{conn: conn, limits: frame.DefaultLimits()}, nil
}

// Send writes one datagram to the dialed remote.
func (c *Conn) Send(ctx context.Context, b []byte) error {
	if c.remote == nil {
		return ErrNotDialed
	}
	if err := c.prepareWrite(ctx, b); err != nil {
		return err
	}
	_, err := c.conn.Write(b)
	return c.wrap(err)
}

// Recv reads one datagram from the dialed remote.
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	b, _, err := c.read(ctx)
	return b, err
}

// ReadFrom reads one datagram and its source address.
func (c *Conn) ReadFrom(ctx context.Context) ([]byte, net.Addr, error) {
	return c.read(ctx)
}

// WriteTo writes one datagram to addr.
func (c *Conn) WriteTo(ctx context.Context, b []byte, addr net.Addr) error {
	if err := c.prepareWrite(ctx, b); err != nil {
		return err
	}
	_, err := c.conn.WriteTo(b, addr)
	return c.wrap(err)
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) prepareWrite(ctx context.Context, b []byte) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := frame.CheckSize(b, c.limits); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	return c.conn.SetWriteDeadline(deadline)
}

func (c *Conn) read(ctx context.Context) ([]byte, net.Addr, error) {
	if c.isClosed() {
		return nil, nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, c.wrap(err)
	}

	// The watcher must exit before we return, or a late cancel could clobber the
	// deadline of the next read.
	readDone := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			_ = c.conn.SetReadDeadline(time.Now())
		case <-readDone:
		}
	}()
	defer func() {
		close(readDone)
		<-watcherDone
	}()

	buf := make([]byte, c.limits.MaxDatagramBytes)
	n, addr, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, c.wrap(err)
	}
	return buf[:n], addr, nil
}

func (c *Conn) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	return err
}
