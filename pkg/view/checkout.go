package view

type CustomerView struct {
	Name      string
	Email     string
	Phone     string
	OrgNumber string
}

type PaymentMethodView struct {
	ID       string
	Title    string
	Selected bool
}

// CheckoutPage is everything the checkout template renders.
type CheckoutPage struct {
	Flash          *Flash
	Customer       *CustomerView
	PaymentMethods []PaymentMethodView
	ContainerID    string
	// WidgetHTML is server-generated iframe markup and is written unescaped.
	WidgetHTML    string
	PaymentStatus string // "ok", "fail" or empty
}
