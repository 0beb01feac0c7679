package scope

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

type invocationKey struct{}

// Event recorded during an invocation
type Event struct {
	Name   string
	Values []string
	At     time.Time
}

// Invocation collects the events of a single command run.
// It lives in the context of the command and is discarded with it.
type Invocation struct {
	ID      string
	Command string
	Started time.Time

	mx     sync.Mutex
	events []Event
}

// NewInvocation starts recording a command
func NewInvocation(command string) *Invocation {
	return &Invocation{
		ID:      ksuid.New().String(),
		Command: command,
		Started: time.Now().UTC(),
	}
}

// WithInvocation attaches an invocation to a context
func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFrom returns the invocation of a context, or nil
func InvocationFrom(ctx context.Context) *Invocation {
	inv, _ := ctx.Value(invocationKey{}).(*Invocation)
	return inv
}

// Record an event. Recording on a nil invocation is a no-op.
func (i *Invocation) Record(name string, values ...string) {
	if i == nil {
		return
	}
	i.mx.Lock()
	defer i.mx.Unlock()
	i.events = append(i.events, Event{Name: name, Values: values, At: time.Now().UTC()})
}

// Events recorded so far
func (i *Invocation) Events() []Event {
	if i == nil {
		return nil
	}
	i.mx.Lock()
	defer i.mx.Unlock()
	res := make([]Event, len(i.events))
	copy(res, i.events)
	return res
}

// Count the events with a given name
func (i *Invocation) Count(name string) int {
	n := 0
	for _, e := range i.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}
