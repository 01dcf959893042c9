package tailer

import (
	"errors"
	"fmt"
)

// ObserverFuncs adapts optional functions to the Observer interface.
// Nil fields are no-ops.
type ObserverFuncs struct {
	Create   func(path string) error
	Delete   func(path string) error
	Truncate func(path string, belowThreshold bool) error
	Receive  func(path string, data []byte) error
	Fault    func(method string, err error)
}

// OnCreate implements Observer.OnCreate.
func (f ObserverFuncs) OnCreate(path string) error {
	if f.Create == nil {
		return nil
	}
	return f.Create(path)
}

// OnDelete implements Observer.OnDelete.
func (f ObserverFuncs) OnDelete(path string) error {
	if f.Delete == nil {
		return nil
	}
	return f.Delete(path)
}

// OnTruncate implements Observer.OnTruncate.
func (f ObserverFuncs) OnTruncate(path string, belowThreshold bool) error {
	if f.Truncate == nil {
		return nil
	}
	return f.Truncate(path, belowThreshold)
}

// OnReceive implements Observer.OnReceive.
func (f ObserverFuncs) OnReceive(path string, data []byte) error {
	if f.Receive == nil {
		return nil
	}
	return f.Receive(path, data)
}

// OnObserverFault implements Observer.OnObserverFault.
func (f ObserverFuncs) OnObserverFault(method string, err error) {
	if f.Fault != nil {
		f.Fault(method, err)
	}
}

// MultiObserver calls every observer in order, even after one fails or
// panics. The failures are joined with errors.Join; faults are reported to
// every observer.
type MultiObserver []Observer

// OnCreate implements Observer.OnCreate.
func (m MultiObserver) OnCreate(path string) error {
	return m.each(func(o Observer) error { return o.OnCreate(path) })
}

// OnDelete implements Observer.OnDelete.
func (m MultiObserver) OnDelete(path string) error {
	return m.each(func(o Observer) error { return o.OnDelete(path) })
}

// OnTruncate implements Observer.OnTruncate.
func (m MultiObserver) OnTruncate(path string, belowThreshold bool) error {
	return m.each(func(o Observer) error { return o.OnTruncate(path, belowThreshold) })
}

// OnReceive implements Observer.OnReceive.
func (m MultiObserver) OnReceive(path string, data []byte) error {
	return m.each(func(o Observer) error { return o.OnReceive(path, data) })
}

// OnObserverFault implements Observer.OnObserverFault.
func (m MultiObserver) OnObserverFault(method string, err error) {
	for _, o := range m {
		o := o
		_ = callRecover(func() error {
			o.OnObserverFault(method, err)
			return nil
		})
	}
}

func (m MultiObserver) each(call func(Observer) error) error {
	var errs []error
	for _, o := range m {
		o := o
		if err := callRecover(func() error { return call(o) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notify runs one observer callback and routes any failure to the fault
// handler. It never panics.
func (t *tailer) notify(method string, call func() error) {
	err := callRecover(call)
	if err == nil {
		return
	}

	t.logger.Error("observer callback failed",
		"method", method,
		"error", err)

	defer func() {
		if r := recover(); r != nil {
			t.logger.Debug("observer fault handler panicked, ignoring",
				"method", method,
				"panic", r)
		}
	}()
	t.observer.OnObserverFault(method, err)
}

func callRecover(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrObserverPanic, r)
		}
	}()
	return call()
}
