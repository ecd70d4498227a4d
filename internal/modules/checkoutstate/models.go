package checkoutstate

const (
	InvoicePaymentID    = "invoice-payment"
	InvoicePaymentTitle = "Pay later"

	CardPaymentID    = "card-payment"
	CardPaymentTitle = "Pay with card"
)

// Customer is the person checking out. The store treats it as opaque.
type Customer struct {
	ID          string `json:"id,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	OrgNumber   string `json:"org_number,omitempty"`
}

type PaymentMethod struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Selected bool    `json:"selected"`
	Token    *string `json:"token"`
}

// State is everything a checkout page knows about one checkout session.
type State struct {
	Customer       *Customer       `json:"customer"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
}

func NewState() State {
	return State{
		Customer: nil,
		PaymentMethods: []PaymentMethod{
			{ID: InvoicePaymentID, Title: InvoicePaymentTitle},
		},
	}
}

// Clone returns a deep copy; nothing in the copy aliases s.
func (s State) Clone() State {
	out := State{}
	if s.Customer != nil {
		c := *s.Customer
		out.Customer = &c
	}
	out.PaymentMethods = make([]PaymentMethod, len(s.PaymentMethods))
	for i, m := range s.PaymentMethods {
		if m.Token != nil {
			t := *m.Token
			m.Token = &t
		}
		out.PaymentMethods[i] = m
	}
	return out
}

// Selected returns the selected method, if any.
func (s State) Selected() (PaymentMethod, bool) {
	for _, m := range s.PaymentMethods {
		if m.Selected {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

func (s State) Method(id string) (PaymentMethod, bool) {
	for _, m := range s.PaymentMethods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}
