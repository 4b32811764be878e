package island

//CellCapacity is the soft occupancy limit, honoured by seeding and reproduction only
const CellCapacity = 5

//Cell is one location of the island
type Cell struct {
	HasGrass bool
	Agents   []*Agent
}

func (c *Cell) Len() int {
	return len(c.Agents)
}

//Full reports the capacity guidance is reached
func (c *Cell) Full() bool {
	return len(c.Agents) >= CellCapacity
}

func (c *Cell) add(a *Agent) {
	c.Agents = append(c.Agents, a)
}

//sweep drops dead agents keeping the order of the live ones
func (c *Cell) sweep() (removed int) {
	live := c.Agents[:0]
	for _, a := range c.Agents {
		if a.Alive() {
			live = append(live, a)
		} else {
			removed++
		}
	}
	for i := len(live); i < len(c.Agents); i++ {
		c.Agents[i] = nil
	}
	c.Agents = live
	return
}

//AgentView is the read-only copy of an agent handed to presentation
type AgentView struct {
	ID      uint64
	Species Species
	Symbol  string
	Alive   bool
	Satiety float64
	Heading Heading
}

//CellView is the read-only copy of a cell
type CellView struct {
	HasGrass bool
	Agents   []AgentView
}

func (c *Cell) view() CellView {
	v := CellView{HasGrass: c.HasGrass}
	if len(c.Agents) > 0 {
		v.Agents = make([]AgentView, len(c.Agents))
		for i, a := range c.Agents {
			v.Agents[i] = AgentView{
				ID:      a.ID,
				Species: a.Species,
				Symbol:  a.Species.Symbol(),
				Alive:   a.Alive(),
				Satiety: a.Satiety,
				Heading: a.Heading,
			}
		}
	}
	return v
}
