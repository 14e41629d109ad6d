package viewmodel

import (
	"log/slog"
	"slices"
	"strings"

	"i4.energy/across/cellmon/at"
)

// Decoder folds packets into a State using the processors of a registry.
// It holds no state of its own, so replaying the same packets always
// yields the same result.
type Decoder struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDecoder creates a decoder. A nil logger means slog.Default().
func NewDecoder(registry *Registry, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{registry: registry, logger: logger}
}

// Registry returns the registry the decoder dispatches to.
func (d *Decoder) Registry() *Registry {
	return d.registry
}

// Replay folds packets, in order, into the registry's initial state.
func (d *Decoder) Replay(packets []at.Packet) State {
	s := d.registry.InitialState()
	for _, p := range packets {
		s = d.Step(s, p)
	}
	return s
}

// Step classifies p against s, dispatches it and returns the merged state.
// Every event carried by p is applied in order.
//
// A response without a final result code is held in s.Pending until the
// result code arrives; the assembled response is dispatched once.
func (d *Decoder) Step(s State, p at.Packet) State {
	var awaiting string
	if s.Pending != nil {
		awaiting = s.Pending.Command
	}

	events := at.Decode(p, awaiting)
	if len(events) == 0 {
		d.logger.Debug("Dropped packet", "format", p.Format, "data", string(p.Data))
		return s
	}
	for _, c := range events {
		s = d.apply(s, c)
	}
	return s
}

func (d *Decoder) apply(s State, c at.Classified) State {
	switch c.Kind {
	case at.KindRequest:
		if s.Pending != nil {
			d.logger.Debug("Request superseded", "command", s.Pending.Command, "by", c.Command)
		}
		s.Pending = &PendingRequest{Command: c.Command, Operator: c.Operator, Payload: c.Payload}

	case at.KindResponse:
		var lines []string
		if s.Pending != nil {
			lines = s.Pending.Lines
		}
		if c.Payload != "" {
			lines = slices.Concat(lines, []string{c.Payload})
		}
		if c.Status == at.StatusNone {
			if s.Pending == nil {
				return s
			}
			pending := *s.Pending
			pending.Lines = lines
			s.Pending = &pending
			return s
		}
		c.Payload = strings.Join(lines, "\n")
		s.Pending = nil
	}

	return d.dispatch(c, s)
}

func (d *Decoder) dispatch(c at.Classified, s State) State {
	patch := d.registry.Dispatch(c, s)
	if patch.IsEmpty() {
		d.logger.Debug("No update", "command", c.Command, "kind", c.Kind.String(), "status", c.Status.String())
		return s
	}
	d.logger.Debug("Dispatched", "command", c.Command, "kind", c.Kind.String(), "operator", c.Operator.String())
	return Merge(s, patch)
}
