package checkoutstate

import "context"

// Session binds a Repo to one checkout session id. Handlers and the payment
// coordinator mutate state only through it.
type Session struct {
	repo Repo
	id   string
}

func NewSession(repo Repo, sessionID string) *Session {
	return &Session{repo: repo, id: sessionID}
}

func (s *Session) ID() string { return s.id }

func (s *Session) SetCustomer(ctx context.Context, c *Customer) (State, error) {
	return s.repo.Update(ctx, s.id, func(st *State) { st.SetCustomer(c) })
}

func (s *Session) AddCardPaymentMethod(ctx context.Context, token string) error {
	_, err := s.repo.Update(ctx, s.id, func(st *State) { st.AddCardPaymentMethod(token) })
	return err
}

func (s *Session) SelectPaymentMethod(ctx context.Context, id string) (State, error) {
	return s.repo.Update(ctx, s.id, func(st *State) { st.SelectPaymentMethod(id) })
}

func (s *Session) Snapshot(ctx context.Context) (State, error) {
	return s.repo.Load(ctx, s.id)
}
