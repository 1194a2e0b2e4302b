package traffic

// Car is a pooled vehicle. Position is derived from Progress along the
// car's lane path.
type Car struct {
	ID        uint64
	Direction Direction
	Lane      int
	Progress  float64 // Distance travelled from the spawn point
	X, Y      float64
	Speed     float64
	Cruise    float64 // Free-flow speed drawn at spawn
	Stopped   bool
	Reaction  string // Outcome id once rolled, "" before

	waiting  bool    // Stopped and counting down to resume
	resumeIn float64 // Seconds left on the resume delay
	active   bool
}

// Reacted reports whether the car already carries a reaction.
func (c *Car) Reacted() bool { return c.Reaction != "" }

// MarkReacted records the reaction rolled for the car.
func (c *Car) MarkReacted(outcomeID string) { c.Reaction = outcomeID }

// Active reports whether the slot is in use.
func (c *Car) Active() bool { return c.active }

// Pool is a fixed-capacity set of car slots. Slots are reused, never
// reallocated, so pointers handed out stay valid for the pool's lifetime.
type Pool struct {
	slots []Car
	inUse int
}

// NewPool allocates capacity slots up front.
func NewPool(capacity int) *Pool {
	return &Pool{slots: make([]Car, capacity)}
}

// Acquire returns a zeroed, active slot, or nil when the pool is full.
func (p *Pool) Acquire() *Car {
	for i := range p.slots {
		if !p.slots[i].active {
			p.slots[i] = Car{active: true}
			p.inUse++
			return &p.slots[i]
		}
	}
	return nil
}

// Release returns a car's slot to the pool.
func (p *Pool) Release(c *Car) {
	if c == nil || !c.active {
		return
	}
	*c = Car{}
	p.inUse--
}

// ReleaseAll empties the pool.
func (p *Pool) ReleaseAll() {
	for i := range p.slots {
		p.slots[i] = Car{}
	}
	p.inUse = 0
}

// Active appends every active car to buf in slot order and returns it.
func (p *Pool) Active(buf []*Car) []*Car {
	for i := range p.slots {
		if p.slots[i].active {
			buf = append(buf, &p.slots[i])
		}
	}
	return buf
}

// Len returns the number of active cars.
func (p *Pool) Len() int { return p.inUse }

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return len(p.slots) }
