package island

import "time"

//tick rules
const (
	GrazeValue           = 10.0
	RegrowthProbability  = 0.1
	SatietyDecay         = 0.1
	ReproductionCooldown = 3 * time.Second
	StarvationThreshold  = 5 * time.Second
)

//Tick advances the island one step:
//movement, predation and grazing, reproduction, starvation, satiety decay, then dead agents are removed
func (g *Grid) Tick() []Event {
	g.MoveAgents()
	events := g.ProcessPredationAndGrazing()
	events = append(events, g.ProcessReproduction()...)
	events = append(events, g.ProcessStarvation()...)
	g.DecaySatietyAll()
	g.sweepDead()
	g.tick++
	return events
}

//RunTick advances the island one step and returns the message log of the step
func (g *Grid) RunTick() []string {
	return Messages(g.Tick())
}

//MoveAgents walks every live mobile agent one step along its heading
//an agent leaves its cell only when the target is inside the island, otherwise it stays put;
//moves are applied after the scan so nobody walks twice in one call
func (g *Grid) MoveAgents() {
	type move struct {
		a    *Agent
		x, y int
	}
	var moves []move
	g.walk(func(x int, y int, c *Cell) {
		stay := c.Agents[:0]
		for _, a := range c.Agents {
			if !a.Alive() {
				continue
			}
			if !CapabilityOf(a.Species).Mobile {
				stay = append(stay, a)
				continue
			}
			a.turn(g.dice)
			dx, dy := a.Heading.delta()
			if nx, ny := x+dx, y+dy; g.inBounds(nx, ny) {
				moves = append(moves, move{a, nx, ny})
			} else {
				stay = append(stay, a)
			}
		}
		for i := len(stay); i < len(c.Agents); i++ {
			c.Agents[i] = nil
		}
		c.Agents = stay
	})
	for _, m := range moves {
		g.cells[m.y][m.x].add(m.a)
	}
}

//ProcessPredationAndGrazing lets every live pair of co-located agents hunt,
//then the first grazer of a grassed cell eats the grass, then bare cells may regrow
func (g *Grid) ProcessPredationAndGrazing() []Event {
	now := g.clock.Now()
	var events []Event
	g.walk(func(x int, y int, c *Cell) {
		for _, predator := range c.Agents {
			for _, prey := range c.Agents {
				if predator == prey || !predator.Alive() || !prey.Alive() {
					continue
				}
				chance := CaptureProbability(predator.Species, prey.Species)
				if chance <= 0 || g.dice.Intn(100) >= chance {
					continue
				}
				prey.Die()
				predator.Feed(NutritionValue(predator.Species, prey.Species), now)
				g.registerDeath(prey.Species, now)
				events = append(events, Event{
					Kind:       EventCapture,
					X:          x,
					Y:          y,
					Actor:      predator.Species,
					Target:     prey.Species,
					Satiety:    predator.Satiety,
					MaxSatiety: MaxSatiety(predator.Species),
				})
			}
		}

		if c.HasGrass {
			for _, a := range c.Agents {
				if !a.Alive() || !CapabilityOf(a.Species).EatsPlants {
					continue
				}
				a.Feed(GrazeValue, now)
				c.HasGrass = false
				events = append(events, Event{
					Kind:       EventGraze,
					X:          x,
					Y:          y,
					Actor:      a.Species,
					Satiety:    a.Satiety,
					MaxSatiety: MaxSatiety(a.Species),
				})
				break
			}
		}

		if !c.HasGrass && g.dice.Float64() < RegrowthProbability {
			c.HasGrass = true
			events = append(events, Event{Kind: EventRegrowth, X: x, Y: y})
		}
	})
	return events
}

//ProcessReproduction spawns one replacement for every species whose latest death is old enough
//the target cell is sampled once; a full cell keeps the credit for a later tick
func (g *Grid) ProcessReproduction() []Event {
	now := g.clock.Now()
	var events []Event
	for i := range g.pending {
		p := g.pending[i]
		if !p.set || now.Sub(p.died) < ReproductionCooldown {
			continue
		}
		s := Species(i)
		x, y := g.dice.Intn(g.width), g.dice.Intn(g.height)
		if _, ok := g.Spawn(x, y, s); !ok {
			continue
		}
		g.pending[i] = pendingBirth{}
		events = append(events, Event{Kind: EventBirth, X: x, Y: y, Actor: s})
	}
	return events
}

//ProcessStarvation kills every mobile agent whose stomach stayed empty for StarvationThreshold
//the plant filler never eats and so is never starved; starved agents are not reborn
func (g *Grid) ProcessStarvation() []Event {
	now := g.clock.Now()
	var events []Event
	g.walk(func(x int, y int, c *Cell) {
		for _, a := range c.Agents {
			if !a.Alive() || !CapabilityOf(a.Species).Mobile || !a.Starving(now, StarvationThreshold) {
				continue
			}
			a.Die()
			events = append(events, Event{Kind: EventStarvation, X: x, Y: y, Actor: a.Species})
		}
	})
	return events
}

//DecaySatietyAll lowers the satiety of every live agent by SatietyDecay
func (g *Grid) DecaySatietyAll() {
	g.walk(func(x int, y int, c *Cell) {
		for _, a := range c.Agents {
			if a.Alive() {
				a.Decay(SatietyDecay)
			}
		}
	})
}

//RegrowGrass is the ambient sweep: every bare cell grows grass with probability p
func (g *Grid) RegrowGrass(p float64) int {
	return g.RegrowGrassRows(0, g.height-1, p, g.dice)
}

//RegrowGrassRows runs the sweep over rows y0..y1 with the given random source
//calls over disjoint row ranges touch disjoint cells and may run in parallel
func (g *Grid) RegrowGrassRows(y0 int, y1 int, p float64, d Dice) (regrown int) {
	if y0 < 0 {
		y0 = 0
	}
	if y1 > g.height-1 {
		y1 = g.height - 1
	}
	for y := y0; y <= y1; y++ {
		row := g.cells[y]
		for x := range row {
			if !row[x].HasGrass && d.Float64() < p {
				row[x].HasGrass = true
				regrown++
			}
		}
	}
	return
}

func (g *Grid) sweepDead() (removed int) {
	g.walk(func(x int, y int, c *Cell) {
		removed += c.sweep()
	})
	return
}
