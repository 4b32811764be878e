package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"

	"islandsim/src/island"
	"islandsim/src/universe"
)

func TestCensus(t *testing.T) {
	s := island.Snapshot{
		Tick:   7,
		Width:  2,
		Height: 1,
		Cells: [][]island.CellView{{
			{Agents: []island.AgentView{
				{ID: 1, Species: island.Sheep, Alive: true, Satiety: 2},
				{ID: 2, Species: island.Wolf, Alive: true, Satiety: 5},
			}},
			{Agents: []island.AgentView{
				{ID: 3, Species: island.Sheep, Alive: true, Satiety: 4},
				{ID: 4, Species: island.Sheep, Alive: false, Satiety: 9},
			}},
		}},
	}
	records := Census(s)
	if len(records) != island.NumSpecies {
		t.Fatalf("%d records, want %d", len(records), island.NumSpecies)
	}
	byName := map[string]SpeciesRecord{}
	for _, r := range records {
		if r.Tick != 7 {
			t.Errorf("%s tick %d", r.Species, r.Tick)
		}
		byName[r.Species] = r
	}
	sheep := byName[island.Sheep.String()]
	if sheep.Alive != 2 || sheep.SatietyMean != 3 || math.Abs(sheep.SatietyStd-math.Sqrt2) > 1e-9 {
		t.Errorf("sheep = %+v", sheep)
	}
	wolf := byName[island.Wolf.String()]
	if wolf.Alive != 1 || wolf.SatietyMean != 5 || wolf.SatietyStd != 0 {
		t.Errorf("wolf = %+v", wolf)
	}
	if bear := byName[island.Bear.String()]; bear.Alive != 0 || bear.SatietyMean != 0 {
		t.Errorf("bear = %+v", bear)
	}
}

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteTick(TickRecord{Tick: 1}); err != nil {
		t.Error(err)
	}
	if err := om.WriteCensus([]SpeciesRecord{{Tick: 1}}); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" || om.Close() != nil {
		t.Error("nil manager is not inert")
	}
}

func TestOutputManagerHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := om.WriteTick(TickRecord{Tick: i, Population: 10 * i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "tick,sim_time,population,grass") {
		t.Fatalf("ticks.csv =\n%s", data)
	}

	var rows []*TickRecord
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[2].Tick != 3 || rows[2].Population != 30 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestCollectorRecordsTicks(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	o := universe.DefaultUniverseOptions
	o.Interval = 0
	o.VirtualTime = time.Second
	o.Seed = 3
	u, err := universe.NewBaseUniverse(&o, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCollector(om, nil)
	u.RegisterViewer(c)
	if err := u.Settle(universe.DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	const ticks = 4
	for i := 0; i < ticks; i++ {
		u.Step()
	}
	u.Sync()
	st := u.Status()
	u.Close()
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	last := c.Last()
	if last.Tick != st.IterationNum || last.Population != st.Population {
		t.Errorf("last record %+v, status %+v", last, st)
	}
	if last.SimTimeSec != float64(st.IterationNum) {
		t.Errorf("sim time %v after %d virtual seconds", last.SimTimeSec, st.IterationNum)
	}

	var rows []*TickRecord
	f, err := os.Open(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != st.IterationNum {
		t.Fatalf("%d tick rows, want %d", len(rows), st.IterationNum)
	}
	births := 0
	for i, r := range rows {
		if r.Tick != i+1 {
			t.Errorf("row %d has tick %d", i, r.Tick)
		}
		births += r.Births
	}
	if births != c.Totals().Births {
		t.Errorf("rows sum %d births, totals %d", births, c.Totals().Births)
	}

	var census []*SpeciesRecord
	data, err := os.ReadFile(filepath.Join(dir, "census.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := gocsv.UnmarshalBytes(data, &census); err != nil {
		t.Fatal(err)
	}
	if len(census) != st.IterationNum*island.NumSpecies {
		t.Errorf("%d census rows, want %d", len(census), st.IterationNum*island.NumSpecies)
	}
}
