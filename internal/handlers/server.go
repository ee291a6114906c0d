// Package handlers exposes the plan lifecycle subsystem over HTTP. It is
// a thin adapter layer: every handler parses a request, calls into
// internal/store, internal/generator, internal/editor, internal/booking,
// or internal/replan, and maps the typed error (if any) back to a
// stable status code and error code (spec.md §7). No business logic
// lives here.
package handlers

import (
	"planengine/internal/booking"
	"planengine/internal/editor"
	"planengine/internal/eventbus"
	"planengine/internal/generator"
	"planengine/internal/monitor"
	"planengine/internal/providers"
	"planengine/internal/replan"
	"planengine/internal/store"
)

// Server holds every dependency the HTTP surface dispatches to.
type Server struct {
	Store   store.Store
	Gen     *generator.Generator
	Editor  *editor.Editor
	Booking *booking.Orchestrator
	Replan  *replan.Pipeline
	Catalog providers.POICatalog
	Events  eventbus.Publisher
	Monitor *monitor.Monitor
}

// New wires a Server from its component dependencies.
func New(
	st store.Store,
	gen *generator.Generator,
	ed *editor.Editor,
	bk *booking.Orchestrator,
	rp *replan.Pipeline,
	catalog providers.POICatalog,
	events eventbus.Publisher,
	mon *monitor.Monitor,
) *Server {
	return &Server{
		Store:   st,
		Gen:     gen,
		Editor:  ed,
		Booking: bk,
		Replan:  rp,
		Catalog: catalog,
		Events:  events,
		Monitor: mon,
	}
}
