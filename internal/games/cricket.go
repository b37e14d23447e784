package games

import (
	"context"
	"time"
)

// Cricket is the swing-timing game's rules, engine-free. A ball is bowled on
// a fixed flight time; the batter taps to swing, and the distance between the
// tap and the ideal contact moment decides the runs.
type Cricket struct {
	flight   time.Duration // full flight from release to the stumps
	elapsed  time.Duration
	inFlight bool
	swung    bool

	score   int
	wickets int
	balls   int
}

const (
	cricketFlight = 1200 * time.Millisecond
	maxWickets    = 3
	perfectWindow = 60 * time.Millisecond
	goodWindow    = 150 * time.Millisecond
	edgedWindow   = 280 * time.Millisecond
	contactPoint  = 0.85 // fraction of flight at which bat meets ball
)

func NewCricket() *Cricket {
	return &Cricket{flight: cricketFlight}
}

// LoadAssets is a no-op: the rules carry no assets, the rendering adapter
// does.
func (c *Cricket) LoadAssets(ctx context.Context) error { return nil }

// Tick advances the ball. A ball that reaches the stumps without a swing is a
// wicket; the next delivery starts immediately until the innings is over.
func (c *Cricket) Tick(dt time.Duration) {
	if c.Over() {
		return
	}
	if !c.inFlight {
		c.bowl()
		return
	}
	c.elapsed += dt
	if c.elapsed >= c.flight {
		if !c.swung {
			c.wickets++
		}
		c.inFlight = false
	}
}

func (c *Cricket) bowl() {
	c.inFlight = true
	c.swung = false
	c.elapsed = 0
	c.balls++
}

// HandleInput registers a swing. Only the first swing per delivery counts.
func (c *Cricket) HandleInput(in Input) {
	if in.Kind != InputTap || !c.inFlight || c.swung || c.Over() {
		return
	}
	c.swung = true

	ideal := time.Duration(float64(c.flight) * contactPoint)
	off := c.elapsed - ideal
	if off < 0 {
		off = -off
	}
	switch {
	case off <= perfectWindow:
		c.score += 6
	case off <= goodWindow:
		c.score += 4
	case off <= edgedWindow:
		c.score++
	default:
		c.wickets++
	}
	c.inFlight = false
}

func (c *Cricket) Score() int { return c.score }

// Over reports whether the innings has ended.
func (c *Cricket) Over() bool { return c.wickets >= maxWickets }

// Balls reports deliveries bowled so far.
func (c *Cricket) Balls() int { return c.balls }

// Wickets reports wickets lost.
func (c *Cricket) Wickets() int { return c.wickets }
