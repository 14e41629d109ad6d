package viewmodel

import (
	"fmt"
	"slices"
	"sync"

	"i4.energy/across/cellmon/at"
)

// Hook turns one classified packet into a patch for the current state.
// Hooks must not modify anything reachable from the state they are given.
type Hook func(c at.Classified, s State) State

// Processor decodes one AT command.
type Processor struct {
	// Command is the mnemonic handled, e.g. "+CFUN".
	Command       string
	Documentation string
	// InitialState returns the processor's part of an empty state.
	InitialState func() State

	OnRequest      Hook
	OnResponse     Hook
	OnNotification Hook
}

// Registry maps command mnemonics to their processors.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Processor
	order []string
}

// NewRegistry creates a registry holding procs.
func NewRegistry(procs ...Processor) (*Registry, error) {
	r := &Registry{procs: make(map[string]Processor, len(procs))}
	for _, p := range procs {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a processor. Its command is normalized the same way
// classified packets are.
func (r *Registry) Register(p Processor) error {
	p.Command = at.NormalizeCommand(p.Command)
	if p.Command == "" {
		return ErrEmptyCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[p.Command]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, p.Command)
	}
	r.procs[p.Command] = p
	r.order = append(r.order, p.Command)
	return nil
}

// Lookup returns the processor for command.
func (r *Registry) Lookup(command string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[at.NormalizeCommand(command)]
	return p, ok
}

// Commands returns the registered mnemonics in sorted order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmds := slices.Clone(r.order)
	slices.Sort(cmds)
	return cmds
}

// InitialState is the union of the initial states of all processors, in
// registration order.
func (r *Registry) InitialState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s State
	for _, cmd := range r.order {
		if p := r.procs[cmd]; p.InitialState != nil {
			s = Merge(s, p.InitialState())
		}
	}
	return s
}

// Dispatch runs the hook matching the packet kind and returns its patch.
// Unregistered commands and missing hooks yield an empty patch.
func (r *Registry) Dispatch(c at.Classified, s State) State {
	p, ok := r.Lookup(c.Command)
	if !ok {
		return State{}
	}

	var hook Hook
	switch c.Kind {
	case at.KindRequest:
		hook = p.OnRequest
	case at.KindResponse:
		hook = p.OnResponse
	case at.KindNotification:
		hook = p.OnNotification
	}
	if hook == nil {
		return State{}
	}
	return hook(c, s)
}
