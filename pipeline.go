// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// A Pipeline is an ordered registry of registrants. It dispatches each
// hook to the registrants which handle it, strictly in registration
// order.
//
// A Pipeline is safe for concurrent use. Registration and removal
// publish a new immutable snapshot, so runs already dispatching keep
// the registrant list they started with. The zero value is an empty
// pipeline ready to use. A nil *Pipeline dispatches nothing.
type Pipeline struct {
	// Logger receives a warning for every OnError registrant failure,
	// since those failures are not returned. If nil, nothing is logged.
	Logger *zerolog.Logger

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	all    []Registrant
	byHook [numHooks][]Registrant
}

func (s *snapshot) with(r Registrant) *snapshot {
	t := &snapshot{}
	if s != nil {
		t.all = append(t.all, s.all...)
	}
	t.all = append(t.all, r)
	t.index()
	return t
}

func (s *snapshot) index() {
	for _, r := range s.all {
		for h := Hook(0); h < hookSentinel; h++ {
			if r.Handles(h) {
				s.byHook[h] = append(s.byHook[h], r)
			}
		}
	}
}

// Register adds r to the end of the pipeline. It is equivalent to
// RegisterWith(r, nil).
func (p *Pipeline) Register(r Registrant) error {
	return p.RegisterWith(r, nil)
}

// RegisterWith adds r to the end of the pipeline. If a registrant with
// the same name exists, ErrDuplicateName is returned. If r implements
// Initializer, it is initialized with settings first and a failure
// rejects the registration.
func (p *Pipeline) RegisterWith(r Registrant, settings map[string]any) error {
	if r == nil {
		panic("reqflow: nil registrant")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.snap.Load()
	if s != nil {
		for _, x := range s.all {
			if x.Name() == r.Name() {
				return fmt.Errorf("%w: %q", ErrDuplicateName, r.Name())
			}
		}
	}

	if i, ok := r.(Initializer); ok {
		if err := i.Initialize(settings); err != nil {
			return fmt.Errorf("reqflow: initialize %q: %w", r.Name(), err)
		}
	}

	p.snap.Store(s.with(r))
	return nil
}

// Unregister removes the registrant with the given name, reporting
// whether there was one.
func (p *Pipeline) Unregister(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.snap.Load()
	if s == nil {
		return false
	}
	t := &snapshot{}
	for _, r := range s.all {
		if r.Name() != name {
			t.all = append(t.all, r)
		}
	}
	if len(t.all) == len(s.all) {
		return false
	}
	t.index()
	p.snap.Store(t)
	return true
}

// Lookup returns the registrant with the given name.
func (p *Pipeline) Lookup(name string) (Registrant, bool) {
	for _, r := range p.registrants() {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Names returns the registrant names in registration order.
func (p *Pipeline) Names() []string {
	all := p.registrants()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name()
	}
	return names
}

// Len returns the number of registrants.
func (p *Pipeline) Len() int {
	return len(p.registrants())
}

// Handles reports whether any registrant handles hook h.
func (p *Pipeline) Handles(h Hook) bool {
	if p == nil || h < 0 || h >= hookSentinel {
		return false
	}
	s := p.snap.Load()
	return s != nil && len(s.byHook[h]) > 0
}

// Dispatch invokes every registrant handling pl.Hook, in registration
// order, passing the same payload to each. The first registrant to fail
// aborts the dispatch and its error is returned as a *HookError.
//
// An OnError dispatch never fails: a registrant failure still aborts
// the dispatch but is logged instead of returned.
func (p *Pipeline) Dispatch(ctx context.Context, pl *Payload) error {
	if p == nil || pl.Hook < 0 || pl.Hook >= hookSentinel {
		return nil
	}
	s := p.snap.Load()
	if s == nil {
		return nil
	}

	for _, r := range s.byHook[pl.Hook] {
		if err := r.Handle(ctx, pl); err != nil {
			herr := &HookError{Hook: pl.Hook, Registrant: r.Name(), Err: err}
			if pl.Hook == OnError {
				p.logger().Warn().
					Str("hook", pl.Hook.Name()).
					Str("registrant", r.Name()).
					Err(err).
					Msg("registrant failed")
				return nil
			}
			return herr
		}
	}

	return nil
}

func (p *Pipeline) registrants() []Registrant {
	if p == nil {
		return nil
	}
	if s := p.snap.Load(); s != nil {
		return s.all
	}
	return nil
}

func (p *Pipeline) logger() *zerolog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
