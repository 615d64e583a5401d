package service

import "sync"

// GroupPool tracks the fixed set of relay channels as free or busy. A
// channel is busy iff it is bound to exactly one in-progress ticket.
type GroupPool struct {
	mu   sync.Mutex
	busy map[string]bool
}

// NewGroupPool builds the pool from the configured channel ids; all start free.
func NewGroupPool(groupIDs []string) *GroupPool {
	busy := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		busy[id] = false
	}
	return &GroupPool{busy: busy}
}

// Allocate marks any free channel busy and returns it. No fairness is
// guaranteed; the first free channel found wins.
func (p *GroupPool) Allocate() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, taken := range p.busy {
		if !taken {
			p.busy[id] = true
			return id, true
		}
	}
	return "", false
}

// Release frees a channel. Freeing an already-free or unknown channel is a
// no-op, not an error.
func (p *GroupPool) Release(groupID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, known := p.busy[groupID]; known {
		p.busy[groupID] = false
	}
}

// MarkBusy forces a specific channel busy, used when rebuilding pool state
// from persisted sessions after a restart.
func (p *GroupPool) MarkBusy(groupID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, known := p.busy[groupID]; known {
		p.busy[groupID] = true
	}
}

// Contains reports whether a group id belongs to the pool.
func (p *GroupPool) Contains(groupID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, known := p.busy[groupID]
	return known
}

// FreeCount returns the number of currently free channels.
func (p *GroupPool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := 0
	for _, taken := range p.busy {
		if !taken {
			free++
		}
	}
	return free
}
