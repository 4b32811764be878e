package island

import "time"

//Heading is the direction an agent is walking to
type Heading uint8

const (
	North Heading = iota
	South
	East
	West

	numHeadings = 4
)

//MaxStepBudget is the upper bound of steps an agent keeps walking one heading
const MaxStepBudget = 4

func (h Heading) String() string {
	switch h {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return "unknown"
}

//delta returns the grid offset of one step, y grows southwards
func (h Heading) delta() (dx int, dy int) {
	switch h {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

//Agent is one live individual of a species
type Agent struct {
	ID       uint64
	Species  Species
	Vitality int
	Heading  Heading
	Steps    int
	Satiety  float64
	LastFed  time.Time
}

//newAgent creates a fresh individual: full vitality, empty stomach, random heading
func newAgent(id uint64, s Species, now time.Time, d Dice) *Agent {
	return &Agent{
		ID:       id,
		Species:  s,
		Vitality: s.InitialVitality(),
		Heading:  Heading(d.Intn(numHeadings)),
		Steps:    d.Intn(MaxStepBudget) + 1,
		LastFed:  now,
	}
}

func (a *Agent) Alive() bool {
	return a.Vitality > 0
}

//Die sets vitality to zero, there is no partial damage
func (a *Agent) Die() {
	a.Vitality = 0
}

//Feed adds the food value clamped to the species maximum and remembers the meal time
func (a *Agent) Feed(value float64, now time.Time) {
	a.Satiety += value
	if limit := MaxSatiety(a.Species); a.Satiety > limit {
		a.Satiety = limit
	}
	if a.Satiety < 0 {
		a.Satiety = 0
	}
	a.LastFed = now
}

//Decay lowers satiety, floored at 0
func (a *Agent) Decay(amount float64) {
	a.Satiety -= amount
	if a.Satiety < 0 {
		a.Satiety = 0
	}
}

//Starving reports an empty stomach for at least threshold
func (a *Agent) Starving(now time.Time, threshold time.Duration) bool {
	return a.Satiety <= 0 && now.Sub(a.LastFed) >= threshold
}

//turn consumes one step of the current heading and picks a new one when the budget is spent
func (a *Agent) turn(d Dice) {
	a.Steps--
	if a.Steps <= 0 {
		a.Heading = Heading(d.Intn(numHeadings))
		a.Steps = d.Intn(MaxStepBudget) + 1
	}
}
