package checkoutstate

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countSelected(st State) int {
	n := 0
	for _, m := range st.PaymentMethods {
		if m.Selected {
			n++
		}
	}
	return n
}

func TestNewStore_DefaultState(t *testing.T) {
	st := NewStore().Snapshot()

	assert.Nil(t, st.Customer)
	require.Len(t, st.PaymentMethods, 1)
	assert.Equal(t, PaymentMethod{ID: "invoice-payment", Title: "Pay later", Selected: false, Token: nil}, st.PaymentMethods[0])
}

func TestSetCustomer_ReadBack(t *testing.T) {
	s := NewStore()
	c := &Customer{ID: "42", FirstName: "Kari", Email: "kari@example.com"}

	s.SetCustomer(c)
	got := s.Snapshot().Customer
	require.NotNil(t, got)
	assert.Equal(t, *c, *got)

	s.SetCustomer(nil)
	assert.Nil(t, s.Snapshot().Customer)
}

func TestAddCardPaymentMethod_Appends(t *testing.T) {
	s := NewStore()

	s.AddCardPaymentMethod("tok123")

	st := s.Snapshot()
	require.Len(t, st.PaymentMethods, 2)
	assert.Equal(t, "invoice-payment", st.PaymentMethods[0].ID)

	card := st.PaymentMethods[1]
	assert.Equal(t, "card-payment", card.ID)
	assert.Equal(t, "Pay with card", card.Title)
	assert.False(t, card.Selected)
	require.NotNil(t, card.Token)
	assert.Equal(t, "tok123", *card.Token)
}

func TestAddCardPaymentMethod_SecondCallReplacesToken(t *testing.T) {
	s := NewStore()
	s.AddCardPaymentMethod("first")
	s.SelectPaymentMethod(CardPaymentID)

	s.AddCardPaymentMethod("second")

	st := s.Snapshot()
	require.Len(t, st.PaymentMethods, 2)
	card, ok := st.Method(CardPaymentID)
	require.True(t, ok)
	assert.Equal(t, "second", *card.Token)
	assert.True(t, card.Selected, "selection survives a token refresh")
}

func TestSelectPaymentMethod(t *testing.T) {
	s := NewStore()
	s.AddCardPaymentMethod("tok")

	s.SelectPaymentMethod(InvoicePaymentID)
	sel, ok := s.Snapshot().Selected()
	require.True(t, ok)
	assert.Equal(t, InvoicePaymentID, sel.ID)

	s.SelectPaymentMethod(CardPaymentID)
	st := s.Snapshot()
	sel, ok = st.Selected()
	require.True(t, ok)
	assert.Equal(t, CardPaymentID, sel.ID)
	assert.Equal(t, 1, countSelected(st))
}

func TestSelectPaymentMethod_EmptyDeselectsAll(t *testing.T) {
	s := NewStore()
	s.SelectPaymentMethod(InvoicePaymentID)

	s.SelectPaymentMethod("")

	assert.Equal(t, 0, countSelected(s.Snapshot()))
}

func TestSelectPaymentMethod_UnknownDeselectsAll(t *testing.T) {
	s := NewStore()
	s.AddCardPaymentMethod("tok")
	s.SelectPaymentMethod(CardPaymentID)

	s.SelectPaymentMethod("klarna")

	st := s.Snapshot()
	assert.Len(t, st.PaymentMethods, 2)
	assert.Equal(t, 0, countSelected(st))
}

func TestSelectPaymentMethod_AtMostOneSelected(t *testing.T) {
	s := NewStore()
	s.AddCardPaymentMethod("tok")
	ids := []string{InvoicePaymentID, CardPaymentID, "", "unknown"}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		s.SelectPaymentMethod(ids[r.Intn(len(ids))])
		assert.LessOrEqual(t, countSelected(s.Snapshot()), 1)
	}
}

func TestSelectPaymentMethod_DuplicateIDsSelectsFirstOnly(t *testing.T) {
	tok := "x"
	st := State{PaymentMethods: []PaymentMethod{
		{ID: CardPaymentID, Token: &tok},
		{ID: CardPaymentID, Token: &tok},
	}}

	st.SelectPaymentMethod(CardPaymentID)

	assert.True(t, st.PaymentMethods[0].Selected)
	assert.False(t, st.PaymentMethods[1].Selected)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := NewStore()
	s.SetCustomer(&Customer{ID: "1"})
	s.AddCardPaymentMethod("tok")

	snap := s.Snapshot()
	snap.Customer.ID = "changed"
	*snap.PaymentMethods[1].Token = "changed"
	snap.PaymentMethods[0].Selected = true

	again := s.Snapshot()
	assert.Equal(t, "1", again.Customer.ID)
	assert.Equal(t, "tok", *again.PaymentMethods[1].Token)
	assert.False(t, again.PaymentMethods[0].Selected)
}

func TestStore_ConcurrentSelectNeverObservesTwoSelected(t *testing.T) {
	s := NewStore()
	s.AddCardPaymentMethod("tok")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	violations := make(chan int, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n := countSelected(s.Snapshot()); n > 1 {
				select {
				case violations <- n:
				default:
				}
			}
		}
	}()

	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < 1000; i++ {
				if (i+w)%2 == 0 {
					s.SelectPaymentMethod(InvoicePaymentID)
				} else {
					s.SelectPaymentMethod(CardPaymentID)
				}
			}
		}(w)
	}
	writers.Wait()
	close(stop)
	wg.Wait()

	select {
	case n := <-violations:
		t.Fatalf("observed %d selected methods", n)
	default:
	}
}
