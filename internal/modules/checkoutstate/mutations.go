package checkoutstate

// SetCustomer replaces the customer. nil clears it.
func (s *State) SetCustomer(c *Customer) {
	if c == nil {
		s.Customer = nil
		return
	}
	cp := *c
	s.Customer = &cp
}

// AddCardPaymentMethod registers the card method carrying the gateway token.
// A second call replaces the token of the existing card entry in place
// instead of appending a duplicate id.
func (s *State) AddCardPaymentMethod(token string) {
	tok := token
	for i := range s.PaymentMethods {
		if s.PaymentMethods[i].ID == CardPaymentID {
			s.PaymentMethods[i].Token = &tok
			return
		}
	}
	s.PaymentMethods = append(s.PaymentMethods, PaymentMethod{
		ID:       CardPaymentID,
		Title:    CardPaymentTitle,
		Selected: false,
		Token:    &tok,
	})
}

// SelectPaymentMethod selects the method with the given id and deselects the
// rest. An empty or unknown id leaves nothing selected.
func (s *State) SelectPaymentMethod(id string) {
	found := false
	for i := range s.PaymentMethods {
		match := !found && id != "" && s.PaymentMethods[i].ID == id
		if match {
			found = true
		}
		s.PaymentMethods[i].Selected = match
	}
}
