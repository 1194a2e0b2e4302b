package traffic

import (
	"math"
	"sort"

	"github.com/talgya/holdup/internal/difficulty"
	"github.com/talgya/holdup/internal/entropy"
)

// stopEpsilon is how close to a stop point a car must be to count as halted.
const stopEpsilon = 0.05

// Stats counts scheduler activity over a session.
type Stats struct {
	Spawned int `json:"spawned"`
	Skipped int `json:"skipped"` // Spawn attempts dropped: pool full or lanes blocked
	Exited  int `json:"exited"`
}

// Scheduler owns the light cycle and the car population.
type Scheduler struct {
	cfg     Config
	light   *LightCycle
	pool    *Pool
	rng     *entropy.Source
	speed   float64 // Difficulty multipliers
	density float64

	countdown [len(Directions)]float64
	nextID    uint64
	stats     Stats

	active []*Car
	lanes  [][]*Car
}

// NewScheduler creates a scheduler over a validated config.
func NewScheduler(cfg Config, profile difficulty.Profile, rng *entropy.Source) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		light:   NewLightCycle(cfg.Phases),
		pool:    NewPool(cfg.PoolCapacity),
		rng:     rng,
		speed:   profile.TrafficSpeed,
		density: profile.TrafficDensity,
		active:  make([]*Car, 0, cfg.PoolCapacity),
		lanes:   make([][]*Car, len(Directions)*cfg.LanesPerDirection),
	}
	for i := range s.countdown {
		s.countdown[i] = s.nextInterval()
	}
	return s
}

// Light returns the light cycle.
func (s *Scheduler) Light() *LightCycle { return s.light }

// Pool returns the car pool.
func (s *Scheduler) Pool() *Pool { return s.pool }

// Stats returns spawn counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// StopLine returns the progress value at which cars hold for a red light.
func (s *Scheduler) StopLine() float64 {
	return s.cfg.SpawnDistance - s.cfg.StopLineOffset
}

// VisibleCars returns the active cars in slot order. The slice is reused
// by the next Advance.
func (s *Scheduler) VisibleCars() []*Car {
	s.active = s.pool.Active(s.active[:0])
	return s.active
}

// ReleaseAll returns every car to the pool, used when the session ends.
func (s *Scheduler) ReleaseAll() {
	s.pool.ReleaseAll()
	s.active = s.active[:0]
}

// Advance steps the light cycle, moves every car and runs the spawn timers.
func (s *Scheduler) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	s.light.Advance(dt)

	s.groupLanes()
	for _, lane := range s.lanes {
		var leader *Car
		for _, c := range lane {
			s.moveCar(c, leader, dt)
			leader = c
		}
	}

	for i, d := range Directions {
		s.countdown[i] -= dt
		if s.countdown[i] > 0 {
			continue
		}
		s.trySpawn(d)
		s.countdown[i] += s.nextInterval()
		if s.countdown[i] <= 0 {
			s.countdown[i] = s.nextInterval()
		}
	}

	exit := 2 * s.cfg.SpawnDistance
	for _, c := range s.VisibleCars() {
		if c.Progress >= exit {
			s.pool.Release(c)
			s.stats.Exited++
		}
	}
}

// nextInterval draws a spawn countdown. Faster, denser profiles spawn more
// often so the road never looks emptier on harder settings.
func (s *Scheduler) nextInterval() float64 {
	return s.rng.Range(s.cfg.SpawnIntervalMin, s.cfg.SpawnIntervalMax) / (s.density * s.speed)
}

func (s *Scheduler) laneKey(d Direction, lane int) int {
	return int(d)*s.cfg.LanesPerDirection + lane
}

// groupLanes buckets active cars by lane, front of the queue first.
func (s *Scheduler) groupLanes() {
	for i := range s.lanes {
		s.lanes[i] = s.lanes[i][:0]
	}
	for _, c := range s.VisibleCars() {
		k := s.laneKey(c.Direction, c.Lane)
		s.lanes[k] = append(s.lanes[k], c)
	}
	for _, lane := range s.lanes {
		sort.SliceStable(lane, func(i, j int) bool {
			if lane[i].Progress != lane[j].Progress {
				return lane[i].Progress > lane[j].Progress
			}
			return lane[i].ID < lane[j].ID
		})
	}
}

// moveCar advances one car, braking for a red stop line or the car ahead.
func (s *Scheduler) moveCar(c, leader *Car, dt float64) {
	stopLine := s.StopLine()
	limit := math.Inf(1)
	limitSpeed := c.Cruise

	if !s.light.Allows(c.Direction) && c.Progress <= stopLine+stopEpsilon {
		limit = stopLine
		limitSpeed = 0
	}
	if leader != nil {
		if gap := leader.Progress - s.cfg.MinGap; gap < limit {
			limit = gap
			limitSpeed = leader.Speed
		}
	}
	remaining := limit - c.Progress

	if remaining <= stopEpsilon && limitSpeed <= 0 {
		c.Speed = 0
		c.Stopped = true
		c.waiting = false
		return
	}

	if c.Stopped {
		if !c.waiting {
			c.waiting = true
			c.resumeIn = s.rng.Range(0, s.cfg.ResumeDelayMax)
		}
		c.resumeIn -= dt
		if c.resumeIn > 0 {
			return
		}
		c.Stopped = false
		c.waiting = false
	}

	target := c.Cruise
	if remaining < s.cfg.StoppingDistance {
		// Constant-deceleration profile: v² proportional to distance left.
		brake := c.Cruise * math.Sqrt(math.Max(remaining, 0)/s.cfg.StoppingDistance)
		target = math.Min(c.Cruise, limitSpeed+brake)
	}
	if target < c.Speed {
		c.Speed = target
	} else {
		c.Speed = math.Min(target, c.Speed+s.cfg.Acceleration*dt)
	}

	next := c.Progress + c.Speed*dt
	if next > limit {
		next = math.Max(limit, c.Progress)
		if limitSpeed <= 0 {
			c.Speed = 0
			c.Stopped = true
		}
	}
	c.Progress = next
	s.place(c)
}

// trySpawn places a car at the entry of a random clear lane. A full pool or
// blocked entry skips the attempt; that is normal at capacity.
func (s *Scheduler) trySpawn(d Direction) {
	var clear []int
	for lane := 0; lane < s.cfg.LanesPerDirection; lane++ {
		q := s.lanes[s.laneKey(d, lane)]
		if len(q) == 0 || q[len(q)-1].Progress >= 2*s.cfg.MinGap {
			clear = append(clear, lane)
		}
	}
	if len(clear) == 0 {
		s.stats.Skipped++
		return
	}
	lane := clear[s.rng.Intn(len(clear))]

	c := s.pool.Acquire()
	if c == nil {
		s.stats.Skipped++
		return
	}
	s.nextID++
	jitter := 1 + s.cfg.SpeedJitter*s.rng.Range(-1, 1)
	c.ID = s.nextID
	c.Direction = d
	c.Lane = lane
	c.Cruise = s.cfg.BaseSpeed * s.speed * jitter
	c.Speed = c.Cruise
	s.place(c)
	s.stats.Spawned++
}

// place derives world coordinates from progress. Cars keep to the right of
// the road centerline.
func (s *Scheduler) place(c *Car) {
	dx, dy := c.Direction.Vector()
	rx, ry := dy, -dx
	offset := (float64(c.Lane) + 0.5) * s.cfg.LaneWidth
	along := c.Progress - s.cfg.SpawnDistance
	c.X = rx*offset + dx*along
	c.Y = ry*offset + dy*along
}

// Heading returns the car's travel angle in radians.
func (c *Car) Heading() float64 {
	dx, dy := c.Direction.Vector()
	return math.Atan2(dy, dx)
}
