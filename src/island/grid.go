package island

import (
	"errors"
	"fmt"
	"time"
)

var (
	//ErrInvalidDimensions is returned when the grid is built with a non-positive side
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
	//ErrCapacityExhausted is returned when seeding can't find a free cell
	ErrCapacityExhausted = errors.New("requested population exceeds grid capacity")
)

const (
	//MaxBrood is the upper bound of individuals per species placed by Populate
	MaxBrood = 5
	//placementAttemptsPerCell bounds the rejection sampling of a free cell
	placementAttemptsPerCell = 64
	minPlacementAttempts     = 256
)

//pendingBirth is the single outstanding birth credit of a species
type pendingBirth struct {
	set  bool
	died time.Time
}

//Grid is the island: the cells plus the registry of latest deaths per species
//Grid is not safe for concurrent use, the scheduler serializes every access
type Grid struct {
	width   int
	height  int
	cells   [][]Cell
	pending [NumSpecies]pendingBirth
	clock   Clock
	dice    Dice
	lastID  uint64
	tick    int
}

//NewGrid creates an empty island, nil clock means the wall clock
func NewGrid(width int, height int, clock Clock, dice Dice) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if dice == nil {
		dice = NewRand(0)
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  createCells(width, height),
		clock:  clock,
		dice:   dice,
	}, nil
}

//createCells allocates the rows over one backing array
func createCells(width int, height int) [][]Cell {
	rows := make([][]Cell, height)
	b := make([]Cell, width*height)
	for i := range rows {
		start := width * i
		rows[i] = b[start : start+width : start+width]
	}
	return rows
}

func (g *Grid) Dimensions() (width int, height int) {
	return g.width, g.height
}

func (g *Grid) Clock() Clock {
	return g.clock
}

//Dice returns the random source of the grid
func (g *Grid) Dice() Dice {
	return g.dice
}

//Ticks returns the number of completed Tick calls
func (g *Grid) Ticks() int {
	return g.tick
}

func (g *Grid) inBounds(x int, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

//CellAt returns the read-only view of the cell at x, y
func (g *Grid) CellAt(x int, y int) (CellView, bool) {
	if !g.inBounds(x, y) {
		return CellView{}, false
	}
	return g.cells[y][x].view(), true
}

//SetGrass forces the grass flag of a cell
func (g *Grid) SetGrass(x int, y int, grass bool) bool {
	if !g.inBounds(x, y) {
		return false
	}
	g.cells[y][x].HasGrass = grass
	return true
}

//walk calls cb for every cell, columns left to right and each column top to bottom
func (g *Grid) walk(cb func(x int, y int, c *Cell)) {
	for x := 0; x < g.width; x++ {
		for y := range g.cells {
			cb(x, y, &g.cells[y][x])
		}
	}
}

func (g *Grid) newAgent(s Species) *Agent {
	g.lastID++
	return newAgent(g.lastID, s, g.clock.Now(), g.dice)
}

//Spawn places a fresh agent at x, y honouring the capacity guidance
func (g *Grid) Spawn(x int, y int, s Species) (*Agent, bool) {
	if !g.inBounds(x, y) || g.cells[y][x].Full() {
		return nil, false
	}
	a := g.newAgent(s)
	g.cells[y][x].add(a)
	return a, true
}

//SeedGrass grows grass on every cell with probability p
func (g *Grid) SeedGrass(p float64) {
	g.walk(func(x int, y int, c *Cell) {
		if g.dice.Float64() < p {
			c.HasGrass = true
		}
	})
}

//Populate places between 1 and MaxBrood individuals of every species on random non-full cells
//the caller must size the grid so width*height*CellCapacity comfortably exceeds the population,
//otherwise ErrCapacityExhausted is returned with the agents placed so far left on the grid
func (g *Grid) Populate() error {
	maxAttempts := placementAttemptsPerCell * g.width * g.height
	if maxAttempts < minPlacementAttempts {
		maxAttempts = minPlacementAttempts
	}
	for _, s := range AllSpecies() {
		count := g.dice.Intn(MaxBrood) + 1
		for i := 0; i < count; i++ {
			placed := false
			for attempt := 0; attempt < maxAttempts; attempt++ {
				x, y := g.dice.Intn(g.width), g.dice.Intn(g.height)
				if _, ok := g.Spawn(x, y, s); ok {
					placed = true
					break
				}
			}
			if !placed {
				return fmt.Errorf("%w: placing %s on %dx%d", ErrCapacityExhausted, s, g.width, g.height)
			}
		}
	}
	return nil
}

//Reset removes every agent, the grass and the pending births
func (g *Grid) Reset() {
	g.walk(func(x int, y int, c *Cell) {
		c.HasGrass = false
		c.Agents = nil
	})
	g.pending = [NumSpecies]pendingBirth{}
	g.tick = 0
}

//Population counts live agents
func (g *Grid) Population() (n int) {
	g.walk(func(x int, y int, c *Cell) {
		for _, a := range c.Agents {
			if a.Alive() {
				n++
			}
		}
	})
	return
}

//GrassCells counts cells with grass
func (g *Grid) GrassCells() (n int) {
	g.walk(func(x int, y int, c *Cell) {
		if c.HasGrass {
			n++
		}
	})
	return
}

//Extinct reports no live agents and no birth credit left
func (g *Grid) Extinct() bool {
	for _, p := range g.pending {
		if p.set {
			return false
		}
	}
	return g.Population() == 0
}

//PendingBirth returns the registered death time of a species
func (g *Grid) PendingBirth(s Species) (time.Time, bool) {
	p := g.pending[s.index()]
	return p.died, p.set
}

//registerDeath keeps only the latest death of a species
func (g *Grid) registerDeath(s Species, at time.Time) {
	g.pending[s.index()] = pendingBirth{set: true, died: at}
}

//Snapshot is a deep, read-only copy of the grid
type Snapshot struct {
	Tick       int
	Time       time.Time
	Width      int
	Height     int
	Cells      [][]CellView
	Population int
	Grass      int
}

//CellAt returns the cell view at x, y of the snapshot
func (s Snapshot) CellAt(x int, y int) (CellView, bool) {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return CellView{}, false
	}
	return s.Cells[y][x], true
}

//Snapshot copies the grid state
func (g *Grid) Snapshot() Snapshot {
	s := Snapshot{
		Tick:   g.tick,
		Time:   g.clock.Now(),
		Width:  g.width,
		Height: g.height,
		Cells:  make([][]CellView, g.height),
	}
	for y := range s.Cells {
		s.Cells[y] = make([]CellView, g.width)
	}
	g.walk(func(x int, y int, c *Cell) {
		v := c.view()
		s.Cells[y][x] = v
		if v.HasGrass {
			s.Grass++
		}
		for _, a := range v.Agents {
			if a.Alive {
				s.Population++
			}
		}
	})
	return s
}
