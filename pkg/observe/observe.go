// Package observe implements the change-notification channel between the
// device model and its consumers. A mutation publishes exactly once, after
// the outer operation's final success, so observers re-query and see the
// settled state rather than any intermediate retry.
package observe

import "sync"

// Observer is notified after an observed subject successfully changed.
// The subject is passed so one observer can watch several devices.
type Observer interface {
	Update(subject interface{})
}

// Publisher is a registry of observers. The zero value is ready to use.
// Observers must be comparable (pointer-backed); attaching one twice keeps
// a single registration.
type Publisher struct {
	mu        sync.Mutex
	observers []Observer
}

// Attach registers an observer for change notifications.
func (p *Publisher) Attach(o Observer) {
	if o == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.observers {
		if existing == o {
			return
		}
	}
	p.observers = append(p.observers, o)
}

// Detach removes an observer. Detaching one that is not registered is a
// no-op. Observers must detach before being discarded to avoid lapsed
// listeners.
func (p *Publisher) Detach(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.observers {
		if existing == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// Notify delivers the subject to every registered observer, in attach
// order.
func (p *Publisher) Notify(subject interface{}) {
	p.mu.Lock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.Unlock()

	for _, o := range observers {
		o.Update(subject)
	}
}
