// Package signalbus is the append-only coordination channel between agents,
// the orchestrator, and the human operator. Agents publish signals; the
// operator resolves the ones that need a decision. Signals are never deleted,
// so the bus doubles as a coordination history for the run.
package signalbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loomworks/loom/pkg/models"
)

// ErrUnknownSignal is returned when resolving a signal ID the bus has never
// seen.
var ErrUnknownSignal = fmt.Errorf("unknown signal")

// ErrAlreadyResolved is returned when resolving a signal twice.
var ErrAlreadyResolved = fmt.Errorf("signal already resolved")

// Subscriber receives a copy of every signal published after it subscribed.
// Delivery is synchronous under the bus lock; subscribers must return
// quickly.
type Subscriber func(sig models.Signal)

// Bus is a thread-safe append-only signal store.
type Bus struct {
	mu          sync.RWMutex
	signals     []*models.Signal
	byID        map[string]*models.Signal
	subscribers []Subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{byID: make(map[string]*models.Signal)}
}

// Subscribe registers a subscriber for future publishes.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Publish appends a new signal and returns a copy of it.
func (b *Bus) Publish(sigType models.SignalType, source string, data map[string]any) models.Signal {
	sig := &models.Signal{
		ID:        uuid.NewString(),
		Type:      sigType,
		Source:    source,
		Data:      data,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	b.signals = append(b.signals, sig)
	b.byID[sig.ID] = sig
	subs := b.subscribers
	cp := *sig
	b.mu.Unlock()

	for _, sub := range subs {
		sub(cp)
	}
	return cp
}

// List returns copies of all signals in publish order. A non-empty filter
// restricts the list to that signal type.
func (b *Bus) List(filter models.SignalType) []models.Signal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Signal, 0, len(b.signals))
	for _, sig := range b.signals {
		if filter != "" && sig.Type != filter {
			continue
		}
		out = append(out, *sig)
	}
	return out
}

// Pending returns copies of all unresolved signals, oldest first.
func (b *Bus) Pending() []models.Signal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []models.Signal
	for _, sig := range b.signals {
		if !sig.Resolved {
			out = append(out, *sig)
		}
	}
	return out
}

// Get returns a copy of the signal with the given ID.
func (b *Bus) Get(id string) (models.Signal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sig, ok := b.byID[id]
	if !ok {
		return models.Signal{}, fmt.Errorf("%w: %s", ErrUnknownSignal, id)
	}
	return *sig, nil
}

// Resolve marks a signal resolved with the operator's chosen option.
// Resolution is permanent; a second resolve fails.
func (b *Bus) Resolve(id, chosenOption string) (models.Signal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sig, ok := b.byID[id]
	if !ok {
		return models.Signal{}, fmt.Errorf("%w: %s", ErrUnknownSignal, id)
	}
	if sig.Resolved {
		return models.Signal{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}

	now := time.Now()
	sig.Resolved = true
	sig.ChosenOption = chosenOption
	sig.ResolvedAt = &now
	return *sig, nil
}

// Reset discards all signals. Subscribers stay registered. Used only by
// project reset, which archives the whole project state.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = nil
	b.byID = make(map[string]*models.Signal)
}

// Len returns the total number of signals ever published.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.signals)
}
