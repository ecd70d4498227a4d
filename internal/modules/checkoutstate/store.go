package checkoutstate

import "sync"

// Store holds the state of a single checkout session in memory.
// Every mutation runs under the write lock, so a Snapshot never sees a
// partially applied change.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: NewState()}
}

func (s *Store) SetCustomer(c *Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetCustomer(c)
}

func (s *Store) AddCardPaymentMethod(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AddCardPaymentMethod(token)
}

func (s *Store) SelectPaymentMethod(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectPaymentMethod(id)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// apply runs fn against the live state under the write lock.
func (s *Store) apply(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.state.Clone()
}
