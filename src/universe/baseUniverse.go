package universe

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"islandsim/src/island"
)

//ErrClosed is returned by the commands issued after Close
var ErrClosed = errors.New("universe is closed")

//Options represents the Universe's configurable options
type Options struct {
	Width               int
	Height              int
	Interval            time.Duration
	MaxSteps            int
	MaxSkippedTicks     int
	GrassProbability    float64
	RegrowthProbability float64
	Seed                int64         //0 means time-based
	VirtualTime         time.Duration //clock advance per tick, 0 means the wall clock
	Workers             int
	Advanced            map[string]interface{} //advanced options (engine specific)
}

//Status represents the status of the Universe at concrete moment
type Status struct {
	IterationNum  int
	RunningMode   RunningState
	Population    int
	GrassCells    int
	Events        int
	Regrown       int
	IterationTime time.Duration
	SimTime       time.Time
}

//Viewer is the interface to any Viewer - the object who can display simulation data or control the engine
type Viewer interface {
	Refresh()
	Register(u Universe)
	Start()
}

//The universe running status at the concrete moment
type RunningState int

//default options
const (
	DefSimulationInterval   = time.Second * 10
	DefMaxSteps             = 0
	DefWidth                = 20
	DefHeight               = 10
	DefMaxSkippedTicks      = 5
	DefGrassProbability     = 0.5
	DefRegrowthProbability  = island.RegrowthProbability
	DefVirtualTime          = time.Second
	DefControlQueue         = 1
	DefStatusChannelBacklog = 10
)

const (
	RunningStateManual   = 0x0
	RunningStateStep     = 0x1
	RunningStateRun      = 0x2
	RunningStateFinished = 0x3
)

func (s RunningState) String() string {
	switch s {
	case RunningStateManual:
		return "manual"
	case RunningStateStep:
		return "step"
	case RunningStateRun:
		return "run"
	case RunningStateFinished:
		return "finished"
	}
	return "unknown"
}

var DefaultUniverseOptions = Options{
	Width:               DefWidth,
	Height:              DefHeight,
	Interval:            DefSimulationInterval,
	MaxSteps:            DefMaxSteps,
	MaxSkippedTicks:     DefMaxSkippedTicks,
	GrassProbability:    DefGrassProbability,
	RegrowthProbability: DefRegrowthProbability,
	Workers:             DefWorkers,
}

//BaseUniverse is the base universe's engine
//implements Universe interface
//one goroutine (mainLoop) executes every command, readers copy the grid under the read lock
//can be used to create different implementations by redefining nextIteration or sweep
type BaseUniverse struct {
	options Options
	log     *zap.Logger
	state   struct {
		Status
		sync.Mutex
	}
	grid struct {
		*island.Grid
		sync.RWMutex
		events   []island.Event
		messages []string
	}
	vclock    *island.ManualClock
	stateCh   chan Status
	views     []Viewer
	controlCh chan func()
	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	//owned by mainLoop
	stopRun   chan struct{}
	regrown   int
	foldSweep bool
	//can be redefined by successor
	sweep         func() int
	nextIteration func() []island.Event
}

//NewBaseUniverse creates the BaseUniverse instance and starts its main loop
func NewBaseUniverse(o *Options, stateCh chan Status, log *zap.Logger) (*BaseUniverse, error) {
	u, err := newBaseUniverse(o, stateCh, log)
	if err != nil {
		return nil, err
	}
	u.start()
	return u, nil
}

//newBaseUniverse creates the BaseUniverse instance without starting it
//successors redefine the engine funcs before calling start
func newBaseUniverse(o *Options, stateCh chan Status, log *zap.Logger) (*BaseUniverse, error) {
	if o == nil {
		o = &DefaultUniverseOptions
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts := *o
	opts.Advanced = map[string]interface{}{"engine": "base"}

	var clock island.Clock = island.SystemClock{}
	var vclock *island.ManualClock
	if opts.VirtualTime > 0 {
		vclock = island.NewManualClock(time.Now())
		clock = vclock
	}
	g, err := island.NewGrid(opts.Width, opts.Height, clock, island.NewRand(opts.Seed))
	if err != nil {
		return nil, err
	}

	u := BaseUniverse{
		options:   opts,
		log:       log,
		vclock:    vclock,
		controlCh: make(chan func(), DefControlQueue),
		closeCh:   make(chan struct{}),
		doneCh:    make(chan struct{}),
		stateCh:   stateCh,
	}
	u.grid.Grid = g
	u.state.SimTime = clock.Now()
	//sweep and nextIteration can be implemented by successor
	u.sweep = u._sweep
	u.nextIteration = u._nextIteration
	return &u, nil
}

func (u *BaseUniverse) start() {
	u.log.Info("universe created",
		zap.Int("width", u.options.Width),
		zap.Int("height", u.options.Height),
		zap.Any("engine", u.options.Advanced["engine"]),
		zap.Duration("interval", u.options.Interval),
		zap.Duration("virtual_time", u.options.VirtualTime),
	)
	go u.mainLoop()
}

//Settle seeds the grass with probability grassProbability and populates every species
//blocks until the command is executed
func (u *BaseUniverse) Settle(grassProbability float64) error {
	var err error
	ok := u.exec(func() {
		u.grid.Lock()
		u.grid.SeedGrass(grassProbability)
		err = u.grid.Populate()
		u.grid.Unlock()
		u.updateCounters()
		if err != nil {
			u.log.Warn("settle", zap.Error(err))
		} else {
			u.log.Info("universe settled", zap.Int("population", u.Status().Population))
		}
		u.refreshView()
	})
	if !ok {
		return ErrClosed
	}
	return err
}

//RegisterViewer registers the viewer - the universe will call the viewer when the state is changed
//Register and Refresh of the viewer run on the main loop and must not wait for other commands
func (u *BaseUniverse) RegisterViewer(v Viewer) {
	u.exec(func() {
		v.Register(u)
		u.views = append(u.views, v)
	})
}

//StateCh returns the channel with the universe's status updates
func (u *BaseUniverse) StateCh() chan Status {
	return u.stateCh
}

//Status returns current universe status represented by Status struct
func (u *BaseUniverse) Status() Status {
	u.state.Lock()
	defer u.state.Unlock()
	return u.state.Status
}

//Options returns current universe configuration represented by Options struct
func (u *BaseUniverse) Options() Options {
	return u.options
}

//Snapshot returns the copy of the island taken between two commands
func (u *BaseUniverse) Snapshot() island.Snapshot {
	u.grid.RLock()
	defer u.grid.RUnlock()
	return u.grid.Snapshot()
}

//Messages returns the messages of the latest tick
func (u *BaseUniverse) Messages() []string {
	u.grid.RLock()
	defer u.grid.RUnlock()
	return append([]string(nil), u.grid.messages...)
}

//Events returns the events of the latest tick
func (u *BaseUniverse) Events() []island.Event {
	u.grid.RLock()
	defer u.grid.RUnlock()
	return append([]island.Event(nil), u.grid.events...)
}

//Run starts the universe simulation, returns immediately
func (u *BaseUniverse) Run() {
	u.post(u.run)
}

//Stop stops the universe simulation, returns immediately
//a tick in progress is not interrupted, the Status struct will be written the stateCh on finish
func (u *BaseUniverse) Stop() {
	u.post(u.stop)
}

//Step do one simulation step, returns immediately
//the Status struct will be written to the stateCh on start and on finish
func (u *BaseUniverse) Step() {
	u.post(u.step)
}

//Regrow runs one grass regrowth sweep, returns immediately
func (u *BaseUniverse) Regrow() {
	u.post(u.regrowGrass)
}

//Clear removes every agent and the grass, resets all counters, returns immediately
//the Status struct will be written to the stateCh on finish
func (u *BaseUniverse) Clear() {
	u.post(u.clear)
}

//Sync waits until the commands queued before the call are executed
func (u *BaseUniverse) Sync() {
	u.exec(func() {})
}

//Close stops the main loop after the queued commands and waits for it
func (u *BaseUniverse) Close() {
	u.closeOnce.Do(func() {
		u.post(func() { close(u.closeCh) })
	})
	<-u.doneCh
}

//post queues the command, returns false when the universe is closed
func (u *BaseUniverse) post(cmd func()) bool {
	select {
	case u.controlCh <- cmd:
		return true
	case <-u.closeCh:
		return false
	}
}

//exec queues the command and waits for its execution
func (u *BaseUniverse) exec(cmd func()) bool {
	done := make(chan struct{})
	if !u.post(func() {
		cmd()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
	case <-u.doneCh:
		select {
		case <-done:
		default:
			return false
		}
	}
	return true
}

//mainLoop - the main cycle, should start as a goroutine
//waits for command and executes
func (u *BaseUniverse) mainLoop() {
	defer close(u.doneCh)
	for {
		select {
		case cmd := <-u.controlCh:
			cmd()
		case <-u.closeCh:
			if u.stopRun != nil {
				close(u.stopRun)
				u.stopRun = nil
			}
			u.log.Info("universe closed", zap.Int("iteration", u.Status().IterationNum))
			return
		}
	}
}

//switchRunningState switch the state of the universe to RunningState
//also writes the new state to the stateCh to signal upper control software
func (u *BaseUniverse) switchRunningState(to RunningState) {
	u.state.Lock()
	u.state.RunningMode = to
	st := u.state.Status
	u.state.Unlock()
	if u.stateCh != nil {
		select {
		case u.stateCh <- st:
		case <-u.closeCh:
		}
	}
}

func (u *BaseUniverse) runningMode() RunningState {
	u.state.Lock()
	defer u.state.Unlock()
	return u.state.RunningMode
}

//run starts the universe simulation
//simulation will stop on Stop() calling or when the boundary conditions are reached
func (u *BaseUniverse) run() {
	if u.stopRun != nil {
		return
	}
	if u.runningMode() == RunningStateFinished {
		u.log.Info("run ignored, the universe is finished")
		return
	}
	stop := make(chan struct{})
	u.stopRun = stop
	u.switchRunningState(RunningStateRun)
	go u.runLoop(stop)
}

//runLoop dispatches the regrowth sweep and the tick every period until stop is closed
//the period is skipped when the previous tick is still queued
func (u *BaseUniverse) runLoop(stop chan struct{}) {
	var ticks <-chan time.Time
	if u.options.Interval > 0 {
		ticker := time.NewTicker(u.options.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	inflight := make(chan struct{}, 1)
	skipped := 0
	for {
		if ticks != nil {
			select {
			case <-stop:
				return
			case <-ticks:
			}
			select {
			case inflight <- struct{}{}:
				skipped = 0
			default:
				skipped++
				u.log.Warn("tick skipped, the previous one is still running", zap.Int("skipped", skipped))
				if skipped > u.options.MaxSkippedTicks {
					u.post(func() {
						if u.stopRun == stop {
							u.log.Warn("too many skipped ticks, finishing", zap.Int("max_skipped_ticks", u.options.MaxSkippedTicks))
							u.finish()
						}
					})
					return
				}
				continue
			}
		} else {
			select {
			case <-stop:
				return
			case inflight <- struct{}{}:
			}
		}
		if !u.foldSweep {
			ok := u.post(func() {
				if u.stopRun == stop {
					u.regrowGrass()
				}
			})
			if !ok {
				return
			}
		}
		ok := u.post(func() {
			defer func() { <-inflight }()
			if u.stopRun == stop {
				u.step()
			}
		})
		if !ok {
			return
		}
	}
}

//stop stops the universe running cycle
func (u *BaseUniverse) stop() {
	if u.stopRun == nil {
		return
	}
	close(u.stopRun)
	u.stopRun = nil
	u.switchRunningState(RunningStateManual)
	u.log.Info("universe stopped", zap.Int("iteration", u.Status().IterationNum))
}

//finish stops the running cycle if any and switches to the finished state
func (u *BaseUniverse) finish() {
	if u.stopRun != nil {
		close(u.stopRun)
		u.stopRun = nil
	}
	u.switchRunningState(RunningStateFinished)
	st := u.Status()
	u.log.Info("universe finished", zap.Int("iteration", st.IterationNum), zap.Int("population", st.Population))
}

//step does one tick of the island
//the clock is advanced first when the virtual time is enabled
func (u *BaseUniverse) step() {
	rm := u.runningMode()
	if rm == RunningStateFinished {
		return
	}
	finished := false
	defer func() {
		if finished {
			u.finish()
		} else {
			u.switchRunningState(rm)
		}
		u.refreshView()
	}()

	maxIter := u.options.MaxSteps
	if maxIter != 0 && u.Status().IterationNum >= maxIter {
		finished = true
		return
	}
	u.switchRunningState(RunningStateStep)

	start := time.Now()
	u.grid.Lock()
	if u.vclock != nil {
		u.vclock.Advance(u.options.VirtualTime)
	}
	events := u.nextIteration()
	u.grid.events = events
	u.grid.messages = island.Messages(events)
	extinct := u.grid.Extinct()
	u.grid.Unlock()
	elapsed := time.Since(start)

	u.updateCounters()
	u.state.Lock()
	u.state.IterationNum++
	u.state.Events = len(events)
	u.state.Regrown = u.regrown
	u.state.IterationTime = elapsed
	iter := u.state.IterationNum
	u.state.Unlock()
	u.regrown = 0

	u.log.Debug("tick",
		zap.Int("iteration", iter),
		zap.Int("events", len(events)),
		zap.Duration("elapsed", elapsed),
	)
	if extinct {
		u.log.Info("island is extinct")
	}
	finished = extinct || (maxIter != 0 && iter >= maxIter)
}

//regrowGrass runs the regrowth sweep under the write lock
func (u *BaseUniverse) regrowGrass() {
	u.grid.Lock()
	n := u.sweep()
	u.grid.Unlock()
	u.regrown += n
	u.updateCounters()
	u.log.Debug("grass regrowth sweep", zap.Int("regrown", n))
}

//updateCounters refreshes the population and grass counters of the status
func (u *BaseUniverse) updateCounters() {
	u.grid.RLock()
	pop, grass, now := u.grid.Population(), u.grid.GrassCells(), u.grid.Clock().Now()
	u.grid.RUnlock()
	u.state.Lock()
	u.state.Population = pop
	u.state.GrassCells = grass
	u.state.SimTime = now
	u.state.Unlock()
}

//clear clears the island, reset all counters
func (u *BaseUniverse) clear() {
	if u.stopRun != nil {
		close(u.stopRun)
		u.stopRun = nil
	}
	u.grid.Lock()
	u.grid.Reset()
	u.grid.events = nil
	u.grid.messages = nil
	u.grid.Unlock()
	u.regrown = 0

	u.state.Lock()
	u.state.IterationNum = 0
	u.state.Events = 0
	u.state.Regrown = 0
	u.state.IterationTime = 0
	u.state.Unlock()
	u.updateCounters()
	u.switchRunningState(RunningStateManual)
	u.refreshView()
}

//_sweep regrows the grass of the whole island sequentially
func (u *BaseUniverse) _sweep() int {
	return u.grid.RegrowGrass(u.options.RegrowthProbability)
}

//_nextIteration does one tick, the caller holds the write lock
func (u *BaseUniverse) _nextIteration() []island.Event {
	if u.foldSweep {
		u.regrown += u.sweep()
	}
	return u.grid.Tick()
}

//refreshView calls Refresh event for all registered views
func (u *BaseUniverse) refreshView() {
	for _, v := range u.views {
		v.Refresh()
	}
}
