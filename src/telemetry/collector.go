package telemetry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"islandsim/src/universe"
)

//Collector is a universe viewer turning every completed tick into telemetry records
type Collector struct {
	u   universe.Universe
	out *OutputManager
	log *zap.Logger

	mu       sync.Mutex
	start    time.Time
	lastTick int
	last     TickRecord
	totals   TickRecord
	failed   bool
}

//NewCollector creates the collector, nil out keeps the records in memory only
func NewCollector(out *OutputManager, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{out: out, log: log}
}

func (c *Collector) Register(u universe.Universe) {
	c.u = u
	c.start = u.Status().SimTime
}

func (c *Collector) Start() {}

//Refresh records the latest tick once, a cleared universe restarts the series
func (c *Collector) Refresh() {
	st := c.u.Status()
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.IterationNum == 0 {
		c.lastTick = 0
		c.start = st.SimTime
		return
	}
	if st.IterationNum <= c.lastTick {
		return
	}
	c.lastTick = st.IterationNum

	snap := c.u.Snapshot()
	r := TickRecord{
		Tick:       st.IterationNum,
		SimTimeSec: snap.Time.Sub(c.start).Seconds(),
		Population: snap.Population,
		GrassCells: snap.Grass,
		Swept:      st.Regrown,
		TickMsec:   float64(st.IterationTime) / float64(time.Millisecond),
	}
	r.countEvents(c.u.Events())
	c.last = r
	c.totals.Tick = r.Tick
	c.totals.Births += r.Births
	c.totals.Captures += r.Captures
	c.totals.Starvations += r.Starvations
	c.totals.Grazes += r.Grazes
	c.totals.Regrowths += r.Regrowths
	c.totals.Swept += r.Swept

	if c.failed {
		return
	}
	census := Census(snap)
	for i := range census {
		census[i].Tick = r.Tick
	}
	if err := c.out.WriteTick(r); err != nil {
		c.fail(err)
		return
	}
	if err := c.out.WriteCensus(census); err != nil {
		c.fail(err)
	}
}

//fail logs the first write error and stops writing
func (c *Collector) fail(err error) {
	c.failed = true
	c.log.Error("telemetry output disabled", zap.Error(err), zap.String("dir", c.out.Dir()))
}

//Last returns the record of the latest tick
func (c *Collector) Last() TickRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

//Totals returns the event counters summed over the run
func (c *Collector) Totals() TickRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}
