package island

import "fmt"

//EventKind identifies what happened during a tick
type EventKind uint8

const (
	EventCapture EventKind = iota
	EventGraze
	EventRegrowth
	EventBirth
	EventStarvation
)

func (k EventKind) String() string {
	switch k {
	case EventCapture:
		return "capture"
	case EventGraze:
		return "graze"
	case EventRegrowth:
		return "regrowth"
	case EventBirth:
		return "birth"
	case EventStarvation:
		return "starvation"
	}
	return "unknown"
}

//Event is one thing that happened at cell X, Y
//Actor is the acting agent (predator, grazer, newborn, starved), Target the prey of a capture
type Event struct {
	Kind       EventKind
	X          int
	Y          int
	Actor      Species
	Target     Species
	Satiety    float64
	MaxSatiety float64
}

//String renders the human readable message line
func (e Event) String() string {
	switch e.Kind {
	case EventCapture:
		return fmt.Sprintf("%s ate %s in cell (%d, %d), satiety %.2f/%.2f",
			e.Actor.Symbol(), e.Target.Symbol(), e.X, e.Y, e.Satiety, e.MaxSatiety)
	case EventGraze:
		return fmt.Sprintf("%s ate grass in cell (%d, %d), satiety %.2f/%.2f",
			e.Actor.Symbol(), e.X, e.Y, e.Satiety, e.MaxSatiety)
	case EventRegrowth:
		return fmt.Sprintf("grass grew in cell (%d, %d)", e.X, e.Y)
	case EventBirth:
		return fmt.Sprintf("%s was born in cell (%d, %d)", e.Actor.Symbol(), e.X, e.Y)
	case EventStarvation:
		return fmt.Sprintf("%s starved in cell (%d, %d)", e.Actor.Symbol(), e.X, e.Y)
	}
	return fmt.Sprintf("event %d in cell (%d, %d)", e.Kind, e.X, e.Y)
}

//Messages renders every event into its message line
func Messages(events []Event) []string {
	msgs := make([]string, len(events))
	for i, e := range events {
		msgs[i] = e.String()
	}
	return msgs
}
