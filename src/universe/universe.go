package universe

import "islandsim/src/island"

type Universe interface {
	Status() Status
	Options() Options
	Snapshot() island.Snapshot
	Messages() []string
	Events() []island.Event
	StateCh() chan Status
	Settle(grassProbability float64) error
	RegisterViewer(v Viewer)
	Run()
	Stop()
	Step()
	Regrow()
	Clear()
	Sync()
	Close()
}
