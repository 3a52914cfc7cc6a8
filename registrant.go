// Copyright 2021 The reqflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqflow

import (
	"context"
)

// A Registrant is a pluggable observer or interceptor which a Pipeline
// invokes at the hooks it handles.
//
// The engine invokes registrants concurrently from every in-flight run
// without any locking of its own, so a Registrant with mutable state
// must protect that state itself.
type Registrant interface {
	// Name identifies the registrant. Names are unique within a
	// Pipeline.
	Name() string
	// Version is the registrant's version, for diagnostics.
	Version() string
	// Handles reports whether the registrant wants to be invoked at
	// hook h. It is consulted once, at registration.
	Handles(h Hook) bool
	// Handle is invoked at every hook the registrant handles. A non-nil
	// error aborts the dispatch.
	Handle(ctx context.Context, p *Payload) error
}

// An Initializer is a Registrant which needs to be set up before use.
// Pipeline.RegisterWith calls Initialize before the registrant becomes
// visible to any run, and rejects the registration if it fails.
type Initializer interface {
	Initialize(settings map[string]any) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as hook handlers. Use NewRegistrant to turn one into a
// Registrant.
type HandlerFunc func(ctx context.Context, p *Payload) error

// NewRegistrant returns a Registrant with the given name and version
// which calls f at each of the listed hooks.
func NewRegistrant(name, version string, f HandlerFunc, hooks ...Hook) Registrant {
	if f == nil {
		panic("reqflow: nil handler func")
	}
	r := &funcRegistrant{name: name, version: version, f: f}
	for _, h := range hooks {
		if h < 0 || h >= hookSentinel {
			panic("reqflow: invalid hook")
		}
		r.hooks[h] = true
	}
	return r
}

type funcRegistrant struct {
	name    string
	version string
	f       HandlerFunc
	hooks   [numHooks]bool
}

func (r *funcRegistrant) Name() string    { return r.name }
func (r *funcRegistrant) Version() string { return r.version }

func (r *funcRegistrant) Handles(h Hook) bool {
	return h >= 0 && h < hookSentinel && r.hooks[h]
}

func (r *funcRegistrant) Handle(ctx context.Context, p *Payload) error {
	return r.f(ctx, p)
}
