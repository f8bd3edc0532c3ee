// Package lifecycle guards resources whose setup must run exactly once
// and whose teardown must run exactly once on every exit path.
package lifecycle

import (
	"sync"

	"github.com/ugparu/godec/utils/logger"
)

// Instance is a resource managed by a Manager.
type Instance interface {
	Close_()
	String() string
}

// Manager serializes the start/close transitions of an Instance.
type Manager[T Instance] interface {
	Start(func(T) error) error
	Close()
}

type StartedAlreadyError struct{}

func (*StartedAlreadyError) Error() string {
	return "started already"
}

type StartedAfterCloseError struct{}

func (*StartedAfterCloseError) Error() string {
	return "start after close"
}

type manager[T Instance] struct {
	instance  T
	startOnce sync.Once
	closeOnce sync.Once
	closeChan chan struct{}
}

// NewManager wraps instance so that Start runs its setup at most once
// and Close runs Close_ at most once, even when both are reached from
// multiple error paths.
func NewManager[T Instance](instance T) Manager[T] {
	return &manager[T]{
		instance:  instance,
		closeChan: make(chan struct{}),
	}
}

func (m *manager[T]) Start(startFunc func(T) error) (err error) {
	select {
	case <-m.closeChan:
		return &StartedAfterCloseError{}
	default:
		err = &StartedAlreadyError{}
	}
	m.startOnce.Do(func() {
		logger.Debug(m.instance, "Starting")
		err = startFunc(m.instance)
	})
	return err
}

func (m *manager[T]) Close() {
	m.closeOnce.Do(func() {
		logger.Debug(m.instance, "Closing")
		m.instance.Close_()
		close(m.closeChan)
	})
}
