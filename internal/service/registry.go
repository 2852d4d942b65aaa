package service

import (
	"errors"
	"fmt"
	"sync"

	"smart_climate/internal/climate"
)

// ErrControllerNotFound is returned for an id that is not registered.
var ErrControllerNotFound = errors.New("climate controller not found")

// Registry maps configured controller ids to their controllers, in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*climate.Controller
}

func NewRegistry(ctrls ...*climate.Controller) (*Registry, error) {
	r := &Registry{byID: make(map[string]*climate.Controller, len(ctrls))}
	for _, c := range ctrls {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers c. Ids must be unique.
func (r *Registry) Add(c *climate.Controller) error {
	if c == nil {
		return errors.New("register climate controller: nil controller")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID()]; ok {
		return fmt.Errorf("register climate controller: duplicate id %q", c.ID())
	}
	r.byID[c.ID()] = c
	r.order = append(r.order, c.ID())
	return nil
}

func (r *Registry) Get(id string) (*climate.Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrControllerNotFound, id)
	}
	return c, nil
}

// All returns the controllers in registration order.
func (r *Registry) All() []*climate.Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*climate.Controller, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
