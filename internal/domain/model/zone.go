package model

// Zone is a sized territory with its ordered control log. It is read-only
// once constructed.
type Zone struct {
	size   uint64
	events []Event
}

// NewZone assembles a zone. The events are copied and must already be sorted
// by time, and size must be positive. NewZone validates neither; the log
// parser rejects a zero size and the engine's invariant checks catch both.
func NewZone(size uint64, events []Event) Zone {
	cp := make([]Event, len(events))
	copy(cp, events)
	return Zone{size: size, events: cp}
}

// Size returns the zone weight.
func (z Zone) Size() uint64 { return z.size }

// Len returns the number of events in the log.
func (z Zone) Len() int { return len(z.events) }

// At returns the i-th event.
func (z Zone) At(i int) Event { return z.events[i] }

// Events returns a copy of the log.
func (z Zone) Events() []Event {
	out := make([]Event, len(z.events))
	copy(out, z.events)
	return out
}

// Board is the ordered set of zones scored together. Zone order only fixes
// iteration order.
type Board struct {
	zones []Zone
}

// NewBoard assembles a board from zones.
func NewBoard(zones ...Zone) Board {
	cp := make([]Zone, len(zones))
	copy(cp, zones)
	return Board{zones: cp}
}

// Len returns the number of zones.
func (b Board) Len() int { return len(b.zones) }

// Zone returns the i-th zone.
func (b Board) Zone(i int) Zone { return b.zones[i] }

// Zones returns a copy of the zone list.
func (b Board) Zones() []Zone {
	out := make([]Zone, len(b.zones))
	copy(out, b.zones)
	return out
}
