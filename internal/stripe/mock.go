package stripe

import (
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v72"
)

func NewMock() *Mock {
	return &Mock{
		mutex:            new(sync.Mutex),
		checkoutSessions: make([]*stripe.CheckoutSessionParams, 0),
		sessions:         make(map[string]*stripe.CheckoutSession),
	}
}

type Mock struct {
	mutex            *sync.Mutex
	checkoutSessions []*stripe.CheckoutSessionParams
	sessions         map[string]*stripe.CheckoutSession
	next             int
	err              error
}

func (m *Mock) CheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.checkoutSessions = append(m.checkoutSessions, params)

	m.next++
	sess := &stripe.CheckoutSession{
		ID:            fmt.Sprintf("cs_test_%d", m.next),
		URL:           fmt.Sprintf("https://checkout.stripe.test/pay/cs_test_%d", m.next),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		Metadata:      params.Metadata,
	}
	if params.CustomerEmail != nil {
		sess.CustomerEmail = *params.CustomerEmail
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *Mock) RetrieveCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get checkout session; id: %s, error: no such checkout session", id)
	}
	clone := *sess
	return &clone, nil
}

// SetPaymentStatus sets the payment status of the checkout session id.
func (m *Mock) SetPaymentStatus(id string, status stripe.CheckoutSessionPaymentStatus) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if sess, ok := m.sessions[id]; ok {
		sess.PaymentStatus = status
	}
}

// AddCheckoutSession adds sess to the retrievable checkout sessions.
func (m *Mock) AddCheckoutSession(sess *stripe.CheckoutSession) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[sess.ID] = sess
}

// SetError configures every call to fail with err.
func (m *Mock) SetError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.err = err
}

func (m *Mock) PopCheckoutSession() *stripe.CheckoutSessionParams {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	session := m.checkoutSessions[0]
	m.checkoutSessions = m.checkoutSessions[1:]
	return session
}
