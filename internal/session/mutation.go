package session

import "github.com/flexyearn/flexyearn/internal/account"

// mutation is an optimistic update of the session snapshot. The caller must
// hold the session write lock from begin until commit or rollback.
type mutation struct {
	s      *Session
	before Snapshot
}

func (s *Session) begin() *mutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &mutation{s: s, before: s.snap.clone()}
}

// apply changes the live snapshot and returns the tentative state.
func (m *mutation) apply(fn func(*Snapshot)) Snapshot {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	fn(&m.s.snap)
	return m.s.snap.clone()
}

// commit replaces the snapshot with the stored record.
func (m *mutation) commit(acc account.Account) {
	m.s.adopt(acc)
}

// rollback restores the snapshot taken at begin.
func (m *mutation) rollback() {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.snap = m.before.clone()
}
