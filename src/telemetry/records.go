package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"islandsim/src/island"
)

//TickRecord is one row of ticks.csv
type TickRecord struct {
	Tick       int     `csv:"tick"`
	SimTimeSec float64 `csv:"sim_time"`
	Population int     `csv:"population"`
	GrassCells int     `csv:"grass"`

	// Events of the tick
	Births      int `csv:"births"`
	Captures    int `csv:"captures"`
	Starvations int `csv:"starvations"`
	Grazes      int `csv:"grazes"`
	Regrowths   int `csv:"regrowths"`

	Swept    int     `csv:"swept"` // cells regrown by the ambient sweep since the previous tick
	TickMsec float64 `csv:"tick_ms"`
}

//SpeciesRecord is one row of census.csv
type SpeciesRecord struct {
	Tick        int     `csv:"tick"`
	Species     string  `csv:"species"`
	Alive       int     `csv:"alive"`
	SatietyMean float64 `csv:"satiety_mean"`
	SatietyStd  float64 `csv:"satiety_std"`
}

//countEvents fills the event counters of the record
func (r *TickRecord) countEvents(events []island.Event) {
	for _, e := range events {
		switch e.Kind {
		case island.EventBirth:
			r.Births++
		case island.EventCapture:
			r.Captures++
		case island.EventStarvation:
			r.Starvations++
		case island.EventGraze:
			r.Grazes++
		case island.EventRegrowth:
			r.Regrowths++
		}
	}
}

//Census computes one record per species from the snapshot, in catalog order
func Census(s island.Snapshot) []SpeciesRecord {
	satiety := make([][]float64, island.NumSpecies)
	for y := range s.Cells {
		for _, c := range s.Cells[y] {
			for _, a := range c.Agents {
				if a.Alive {
					satiety[a.Species] = append(satiety[a.Species], a.Satiety)
				}
			}
		}
	}
	records := make([]SpeciesRecord, 0, island.NumSpecies)
	for _, sp := range island.AllSpecies() {
		values := satiety[sp]
		r := SpeciesRecord{Tick: s.Tick, Species: sp.String(), Alive: len(values)}
		switch len(values) {
		case 0:
		case 1:
			r.SatietyMean = values[0]
		default:
			r.SatietyMean, r.SatietyStd = stat.MeanStdDev(values, nil)
		}
		records = append(records, r)
	}
	return records
}
