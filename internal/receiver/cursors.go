package receiver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/arqlink/internal/protocol"
)

// PeerCursor is the receive-side state for one sending peer.
type PeerCursor struct {
	Peer       string       `json:"peer"`
	Expected   protocol.Bit `json:"expected_sequence"`
	Accepted   uint64       `json:"accepted"`
	Duplicates uint64       `json:"duplicates"`
	FirstSeen  time.Time    `json:"first_seen"`
	LastSeen   time.Time    `json:"last_seen"`
}

// CursorTable keeps one expected-sequence cursor per peer. A peer seen for the
// first time expects sequence 0.
type CursorTable struct {
	mu    sync.RWMutex
	items map[string]PeerCursor
	now   func() time.Time
}

func NewCursorTable() *CursorTable {
	return &CursorTable{
		items: make(map[string]PeerCursor),
		now:   time.Now,
	}
}

func (t *CursorTable) Expected(peer string) protocol.Bit {
	key := strings.TrimSpace(peer)
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.items[key].Expected
}

// Accept compares seq to the peer's cursor. On a match the cursor flips and
// Accept reports true; otherwise the frame is a duplicate and the cursor stays.
func (t *CursorTable) Accept(peer string, seq protocol.Bit) bool {
	key := strings.TrimSpace(peer)
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[key]
	if !ok {
		item = PeerCursor{Peer: key, FirstSeen: now}
	}
	item.LastSeen = now
	accepted := item.Expected == seq
	if accepted {
		item.Expected = item.Expected.Flip()
		item.Accepted++
	} else {
		item.Duplicates++
	}
	t.items[key] = item
	return accepted
}

func (t *CursorTable) Get(peer string) (PeerCursor, bool) {
	key := strings.TrimSpace(peer)
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[key]
	return item, ok
}

// Reset forgets the peer, so its next frame must carry sequence 0.
func (t *CursorTable) Reset(peer string) bool {
	key := strings.TrimSpace(peer)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.items[key]
	delete(t.items, key)
	return ok
}

func (t *CursorTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *CursorTable) List() []PeerCursor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PeerCursor, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Peer < out[j].Peer
	})
	return out
}
