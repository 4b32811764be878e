package view

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"islandsim/src/universe"
)

//DefProgressEvery is the number of ticks between two progress lines
const DefProgressEvery = 10

//ConsoleOut is the headless viewer: it logs the configuration, the tick messages,
//the progress and the final summary
type ConsoleOut struct {
	u         universe.Universe
	log       *zap.Logger
	startTime time.Time
	lastIter  int
	finished  bool
}

func NewConsoleOut(log *zap.Logger) *ConsoleOut {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConsoleOut{log: log}
}

func (c *ConsoleOut) Refresh() {
	st := c.u.Status()
	if st.IterationNum < c.lastIter {
		//cleared
		c.lastIter = 0
		c.finished = false
	}
	if st.IterationNum > c.lastIter {
		c.lastIter = st.IterationNum
		for _, m := range c.u.Messages() {
			c.log.Info(m, zap.Int("tick", st.IterationNum))
		}
		if st.RunningMode == universe.RunningStateRun && st.IterationNum%DefProgressEvery == 0 {
			c.log.Info("iterations done",
				zap.Int("iteration", st.IterationNum),
				zap.Int("population", st.Population),
				zap.Int("grass", st.GrassCells),
			)
		}
	}
	if st.RunningMode == universe.RunningStateFinished && !c.finished {
		c.finished = true
		c.log.Info("finished",
			zap.Int("last_iteration", st.IterationNum),
			zap.Duration("total_time", time.Since(c.startTime).Round(time.Millisecond)),
			zap.Int("population", st.Population),
			zap.Int("grass", st.GrassCells),
			zap.Time("sim_time", st.SimTime),
		)
	}
}

func (c *ConsoleOut) Register(u universe.Universe) {
	c.u = u
	o := c.u.Options()
	fields := []zap.Field{
		zap.String("dimension", dimension(o.Width, o.Height)),
		zap.Duration("interval", o.Interval),
		zap.Int("max_steps", o.MaxSteps),
		zap.Duration("virtual_time", o.VirtualTime),
		zap.Float64("regrowth_probability", o.RegrowthProbability),
	}
	c.log.Info("running configuration", append(fields, hashFields(o.Advanced)...)...)
}

func (c *ConsoleOut) Start() {
	c.startTime = time.Now()
	c.log.Info("simulation started")
}

//hashFields turns the map into fields sorted by key
func hashFields(d map[string]interface{}) []zap.Field {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	fields := make([]zap.Field, 0, len(d))
	for _, propName := range propNames {
		fields = append(fields, zap.Any(propName, d[propName]))
	}
	return fields
}
