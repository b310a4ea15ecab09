package xtransport

import "sync"

type mailMsg struct {
	from int
	tag  int
	data []byte
}

// mailbox is one unit's inbound two-sided queue. Recv may ask for a
// specific sender or -1 for "any source" (spec §4.I's subset-barrier
// root receives from its non-root members "in arbitrary order").
type mailbox struct {
	mu   sync.Mutex
	cond *sync.Cond
	q    []mailMsg
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(msg mailMsg) {
	m.mu.Lock()
	m.q = append(m.q, msg)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// pop blocks until a message matching (tag, from) is queued, where
// from < 0 means any sender.
func (m *mailbox) pop(tag, from int) (int, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		for i, msg := range m.q {
			if msg.tag == tag && (from < 0 || msg.from == from) {
				m.q = append(m.q[:i:i], m.q[i+1:]...)
				return msg.from, msg.data
			}
		}
		m.cond.Wait()
	}
}

// probe reports whether a matching message is already queued, without
// consuming it — backs Iprobe (spec §4.G "pokes transport progress").
func (m *mailbox) probe(tag, from int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.q {
		if msg.tag == tag && (from < 0 || msg.from == from) {
			return true
		}
	}
	return false
}
