package docstore

import (
	"context"
	"errors"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// NewMock creates a new Mock instance.
func NewMock(options ...MockOption) *Mock {
	mock := &Mock{
		mutex: new(sync.Mutex),
		docs:  make(map[string][]byte),
	}

	for _, option := range options {
		option(mock)
	}

	return mock
}

// MockOption is a function type that may configure a Mock instance.
type MockOption func(*Mock)

// WithGet configures a Mock instance to call fn before every Get. A non-nil
// error returned by fn is returned by Get.
func WithGet(fn getFunc) MockOption {
	return func(mock *Mock) { mock.get = fn }
}

// WithSet configures a Mock instance to call fn before every Set. A non-nil
// error returned by fn is returned by Set and the document is not written.
func WithSet(fn setFunc) MockOption {
	return func(mock *Mock) { mock.set = fn }
}

type (
	getFunc func(context.Context, string) error
	setFunc func(context.Context, string, interface{}) error
)

// Mock is an in-memory document store, typically used for testing.
type Mock struct {
	get getFunc
	set setFunc

	mutex *sync.Mutex
	docs  map[string][]byte
	sets  int
}

// Get decodes the document at path into dst.
func (m *Mock) Get(ctx context.Context, path string, dst interface{}) error {
	if m.get != nil {
		if err := m.get(ctx, path); err != nil {
			return err
		}
	}

	m.mutex.Lock()
	b, ok := m.docs[path]
	m.mutex.Unlock()
	if !ok {
		return ErrNotFound
	}
	return msgpack.Unmarshal(b, dst)
}

// Set replaces the document at path with val.
func (m *Mock) Set(ctx context.Context, path string, val interface{}) error {
	if m.set != nil {
		if err := m.set(ctx, path, val); err != nil {
			return err
		}
	}

	b, err := msgpack.Marshal(val)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.docs[path] = b
	m.sets++
	return nil
}

// Sets retrieves the number of successful Set calls.
func (m *Mock) Sets() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.sets
}

// Has checks if a document exists at path.
func (m *Mock) Has(path string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.docs[path]
	return ok
}

// ErrUnavailable may be returned by WithGet and WithSet functions to simulate
// an unreachable store.
var ErrUnavailable = errors.New("document store unavailable")
