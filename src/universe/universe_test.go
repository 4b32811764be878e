package universe

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"islandsim/src/island"
)

func newTestOptions() *Options {
	o := DefaultUniverseOptions
	o.Interval = 0
	o.VirtualTime = time.Second
	o.Seed = 42
	return &o
}

func newTestUniverse(t *testing.T, engine string, o *Options, stateCh chan Status) Universe {
	t.Helper()
	u, err := engines[engine](o, stateCh, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	if err != nil {
		t.Fatalf("%s: %v", engine, err)
	}
	t.Cleanup(u.Close)
	return u
}

//checkSnapshot verifies a snapshot taken between two commands
func checkSnapshot(s island.Snapshot) error {
	seen := map[uint64]bool{}
	live := 0
	for y := range s.Cells {
		for x, c := range s.Cells[y] {
			for _, a := range c.Agents {
				if seen[a.ID] {
					return errors.New("agent held by two cells")
				}
				seen[a.ID] = true
				if !a.Alive {
					return errors.New("dead agent visible between ticks")
				}
				if a.Satiety < 0 || a.Satiety > island.MaxSatiety(a.Species) {
					return errors.New("satiety outside bounds")
				}
				live++
			}
			if _, ok := s.CellAt(x, y); !ok {
				return errors.New("cell outside the snapshot bounds")
			}
		}
	}
	if live != s.Population {
		return errors.New("population counter does not match the cells")
	}
	return nil
}

func TestNewUniverseInvalidDimensions(t *testing.T) {
	for _, e := range engineNames() {
		o := newTestOptions()
		o.Width = 0
		if _, err := engines[e](o, nil, nil); !errors.Is(err, island.ErrInvalidDimensions) {
			t.Errorf("%s: error = %v, want ErrInvalidDimensions", e, err)
		}
	}
}

func TestSnapshotConsistency(t *testing.T) {
	ticks := 10000
	if testing.Short() {
		ticks = 1000
	}
	for _, e := range engineNames() {
		t.Run(e, func(t *testing.T) {
			u := newTestUniverse(t, e, newTestOptions(), nil)
			if err := u.Settle(DefGrassProbability); err != nil {
				t.Fatal(err)
			}

			var (
				done   = make(chan struct{})
				wg     sync.WaitGroup
				reads  int64
				failed atomic.Value
			)
			for r := 0; r < 4; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						select {
						case <-done:
							return
						default:
						}
						if err := checkSnapshot(u.Snapshot()); err != nil {
							failed.Store(err)
							return
						}
						_ = u.Messages()
						atomic.AddInt64(&reads, 1)
					}
				}()
			}
			for i := 0; i < ticks; i++ {
				u.Regrow()
				u.Step()
			}
			u.Sync()
			close(done)
			wg.Wait()

			if err, ok := failed.Load().(error); ok {
				t.Fatal(err)
			}
			if reads == 0 {
				t.Error("no snapshot was taken")
			}
			st := u.Status()
			if st.RunningMode != RunningStateFinished && st.IterationNum != ticks {
				t.Errorf("IterationNum = %d, want %d", st.IterationNum, ticks)
			}
			if err := checkSnapshot(u.Snapshot()); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestRunFinishesAtMaxSteps(t *testing.T) {
	for _, e := range engineNames() {
		t.Run(e, func(t *testing.T) {
			o := newTestOptions()
			o.MaxSteps = 25
			stateCh := make(chan Status, DefStatusChannelBacklog)
			u := newTestUniverse(t, e, o, stateCh)
			if err := u.Settle(DefGrassProbability); err != nil {
				t.Fatal(err)
			}
			u.Run()
			timeout := time.After(10 * time.Second)
			for {
				select {
				case st := <-stateCh:
					if st.RunningMode != RunningStateFinished {
						continue
					}
					if st.IterationNum != o.MaxSteps && st.Population != 0 {
						t.Errorf("finished at %d with %d agents, want %d steps", st.IterationNum, st.Population, o.MaxSteps)
					}
					return
				case <-timeout:
					t.Fatalf("run did not finish, status %+v", u.Status())
				}
			}
		})
	}
}

func TestStopHaltsTicks(t *testing.T) {
	u := newTestUniverse(t, "base", newTestOptions(), nil)
	if err := u.Settle(DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	u.Run()
	time.Sleep(20 * time.Millisecond)
	u.Stop()
	u.Sync()
	st := u.Status()
	if st.RunningMode != RunningStateManual && st.RunningMode != RunningStateFinished {
		t.Fatalf("RunningMode = %v after Stop", st.RunningMode)
	}
	time.Sleep(20 * time.Millisecond)
	u.Sync()
	if n := u.Status().IterationNum; n != st.IterationNum {
		t.Errorf("ticks continued after Stop: %d -> %d", st.IterationNum, n)
	}
}

func TestRunWithInterval(t *testing.T) {
	o := newTestOptions()
	o.Interval = 5 * time.Millisecond
	o.MaxSteps = 3
	stateCh := make(chan Status, DefStatusChannelBacklog)
	u := newTestUniverse(t, "inline", o, stateCh)
	if err := u.Settle(DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	u.Run()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case st := <-stateCh:
			if st.RunningMode == RunningStateFinished {
				if st.IterationNum > o.MaxSteps {
					t.Errorf("IterationNum = %d past MaxSteps", st.IterationNum)
				}
				return
			}
		case <-timeout:
			t.Fatal("run did not finish")
		}
	}
}

func TestClear(t *testing.T) {
	u := newTestUniverse(t, "base", newTestOptions(), nil)
	if err := u.Settle(1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		u.Step()
	}
	u.Clear()
	u.Sync()
	st := u.Status()
	if st.IterationNum != 0 || st.Population != 0 || st.GrassCells != 0 || st.RunningMode != RunningStateManual {
		t.Errorf("status after Clear = %+v", st)
	}
	s := u.Snapshot()
	if s.Population != 0 || s.Grass != 0 || s.Tick != 0 {
		t.Errorf("snapshot after Clear: population %d grass %d tick %d", s.Population, s.Grass, s.Tick)
	}
	if len(u.Messages()) != 0 {
		t.Error("messages kept after Clear")
	}
}

func TestStepFinishesExtinctIsland(t *testing.T) {
	u := newTestUniverse(t, "base", newTestOptions(), nil)
	u.Step()
	u.Sync()
	if st := u.Status(); st.RunningMode != RunningStateFinished {
		t.Errorf("empty island RunningMode = %v, want finished", st.RunningMode)
	}
	u.Step()
	u.Sync()
	if n := u.Status().IterationNum; n != 1 {
		t.Errorf("finished universe kept stepping: %d", n)
	}
}

func TestVirtualTimeAdvancesPerTick(t *testing.T) {
	o := newTestOptions()
	o.VirtualTime = 2 * time.Second
	u := newTestUniverse(t, "base", o, nil)
	if err := u.Settle(DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	start := u.Snapshot().Time
	for i := 0; i < 3; i++ {
		u.Step()
	}
	u.Sync()
	s := u.Snapshot()
	if got := s.Time.Sub(start); s.Tick == 3 && got != 6*time.Second {
		t.Errorf("clock advanced %v over 3 ticks, want 6s", got)
	}
	if !u.Status().SimTime.Equal(s.Time) {
		t.Errorf("status time %v, snapshot time %v", u.Status().SimTime, s.Time)
	}
}

func TestMessagesFollowEvents(t *testing.T) {
	u := newTestUniverse(t, "base", newTestOptions(), nil)
	if err := u.Settle(DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		u.Step()
		u.Sync()
		events, msgs := u.Events(), u.Messages()
		if len(events) != len(msgs) {
			t.Fatalf("tick %d: %d events, %d messages", i, len(events), len(msgs))
		}
		for j := range events {
			if events[j].String() != msgs[j] {
				t.Errorf("message %q, event %q", msgs[j], events[j])
			}
		}
		if st := u.Status(); st.Events != len(events) {
			t.Errorf("status events %d, want %d", st.Events, len(events))
		}
	}
}

func TestMultithreadedWorkAreas(t *testing.T) {
	o := newTestOptions()
	o.Workers = 4
	o.RegrowthProbability = 1
	u := newTestUniverse(t, "multithreaded", o, nil)
	mu := u.(*MultithreadedUniverse)
	if len(mu.workAreas) != 4 {
		t.Fatalf("%d work areas, want 4", len(mu.workAreas))
	}
	rows := 0
	for i, wa := range mu.workAreas {
		if i > 0 && wa.y1 != mu.workAreas[i-1].y2+1 {
			t.Errorf("work area %d starts at %d after %d", i, wa.y1, mu.workAreas[i-1].y2)
		}
		rows += wa.y2 - wa.y1 + 1
	}
	if rows != o.Height {
		t.Errorf("work areas cover %d rows, want %d", rows, o.Height)
	}
	if w := u.Options().Advanced["Workers"]; w != 4 {
		t.Errorf("Advanced[Workers] = %v", w)
	}

	u.Regrow()
	u.Sync()
	if s := u.Snapshot(); s.Grass != o.Width*o.Height {
		t.Errorf("sweep with p=1 grew %d cells, want %d", s.Grass, o.Width*o.Height)
	}
}

func TestCloseRejectsCommands(t *testing.T) {
	u, err := NewBaseUniverse(newTestOptions(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	u.Close()
	u.Close()
	if err := u.Settle(DefGrassProbability); !errors.Is(err, ErrClosed) {
		t.Errorf("Settle after Close = %v, want ErrClosed", err)
	}
	done := make(chan struct{})
	go func() {
		u.Step()
		u.Run()
		u.Sync()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("commands after Close blocked")
	}
}

type countingViewer struct {
	registered Universe
	refreshed  int64
}

func (v *countingViewer) Register(u Universe) { v.registered = u }
func (v *countingViewer) Refresh()            { atomic.AddInt64(&v.refreshed, 1) }
func (v *countingViewer) Start()              {}

func TestViewerRefresh(t *testing.T) {
	u := newTestUniverse(t, "base", newTestOptions(), nil)
	v := &countingViewer{}
	u.RegisterViewer(v)
	if v.registered == nil {
		t.Fatal("viewer was not registered")
	}
	if err := u.Settle(DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	u.Step()
	u.Sync()
	if n := atomic.LoadInt64(&v.refreshed); n < 2 {
		t.Errorf("viewer refreshed %d times, want at least 2", n)
	}
}
