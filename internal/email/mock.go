package email

import (
	"context"
	"sync"
)

func NewMock() *Mock {
	return &Mock{
		mutex:               new(sync.RWMutex),
		passwordResetEmails: make(map[string]string),
		receipts:            make(map[string][]Receipt),
	}
}

type Mock struct {
	mutex               *sync.RWMutex
	passwordResetEmails map[string]string
	receipts            map[string][]Receipt
}

func (m *Mock) SendPasswordReset(ctx context.Context, to, hash string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.passwordResetEmails[to] = hash
	return nil
}

func (m *Mock) PasswordResetHash(to string) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.passwordResetEmails[to]
}

func (m *Mock) SendOrderReceipt(ctx context.Context, to string, receipt Receipt) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.receipts[to] = append(m.receipts[to], receipt)
	return nil
}

func (m *Mock) Receipts(to string) []Receipt {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]Receipt(nil), m.receipts[to]...)
}
