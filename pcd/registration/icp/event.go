package icp

import (
	"github.com/seqsense/pcalign/mat"
)

type EventType int

const (
	EventIteration EventType = iota
	EventConverged
	EventDiverged
)

// Event describes the state of an alignment.
type Event struct {
	Type            EventType
	Status          Status
	Iteration       int
	Transformation  mat.Mat4
	Correspondences int
	MeanSqDistance  float64
	// Delta is the change of the transformation in the iteration.
	Delta float64
}

type Handler func(Event)

type HandlerID uint64

type handlerEntry struct {
	id      HandlerID
	handler Handler
}

type registry struct {
	nextID   HandlerID
	handlers map[EventType][]handlerEntry
}

func (r *registry) add(t EventType, h Handler) HandlerID {
	if r.handlers == nil {
		r.handlers = make(map[EventType][]handlerEntry)
	}
	r.nextID++
	r.handlers[t] = append(r.handlers[t], handlerEntry{id: r.nextID, handler: h})
	return r.nextID
}

func (r *registry) remove(id HandlerID) bool {
	for t, hs := range r.handlers {
		for i, h := range hs {
			if h.id == id {
				r.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return true
			}
		}
	}
	return false
}

func (r *registry) emit(e Event) {
	for _, h := range r.handlers[e.Type] {
		h.handler(e)
	}
}

// On registers h to be called on every event of type t.
// Handlers are called synchronously in registration order.
func (r *ICP) On(t EventType, h Handler) HandlerID {
	return r.events.add(t, h)
}

// Off unregisters a handler. It returns false if id is unknown.
func (r *ICP) Off(id HandlerID) bool {
	return r.events.remove(id)
}
