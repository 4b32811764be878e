package view

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"islandsim/src/island"
	"islandsim/src/universe"
)

func newObservedUniverse(t *testing.T) (universe.Universe, *ConsoleOut, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	o := universe.DefaultUniverseOptions
	o.Interval = 0
	o.VirtualTime = time.Second
	o.Seed = 5
	u, err := universe.NewBaseUniverse(&o, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(u.Close)
	c := NewConsoleOut(zap.New(core))
	u.RegisterViewer(c)
	return u, c, logs
}

func TestConsoleOutLogsConfiguration(t *testing.T) {
	_, c, logs := newObservedUniverse(t)
	entries := logs.FilterMessage("running configuration").All()
	if len(entries) != 1 {
		t.Fatalf("%d configuration entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["dimension"] != "20 x 10" || fields["engine"] != "base" {
		t.Errorf("configuration fields = %v", fields)
	}
	c.Start()
	if logs.FilterMessage("simulation started").Len() != 1 {
		t.Error("start was not logged")
	}
}

func TestConsoleOutLogsTickMessages(t *testing.T) {
	u, _, logs := newObservedUniverse(t)
	if err := u.Settle(universe.DefGrassProbability); err != nil {
		t.Fatal(err)
	}
	logged := 0
	for i := 1; i <= 5; i++ {
		u.Step()
		u.Sync()
		msgs := u.Messages()
		for _, m := range msgs {
			found := logs.FilterMessage(m).FilterField(zap.Int("tick", i)).Len()
			if found == 0 {
				t.Errorf("tick %d message %q not logged", i, m)
			}
		}
		logged += len(msgs)
	}
	withTick := 0
	for _, e := range logs.All() {
		if _, ok := e.ContextMap()["tick"]; ok {
			withTick++
		}
	}
	if withTick != logged {
		t.Errorf("%d tick messages logged, want %d", withTick, logged)
	}
}

func TestConsoleOutLogsFinishOnce(t *testing.T) {
	u, _, logs := newObservedUniverse(t)
	u.Step()
	u.Step()
	u.Sync()
	if n := logs.FilterMessage("finished").Len(); n != 1 {
		t.Errorf("finish logged %d times, want 1", n)
	}
	u.Clear()
	u.Step()
	u.Sync()
	if n := logs.FilterMessage("finished").Len(); n != 2 {
		t.Errorf("finish after clear logged %d times, want 2", n)
	}
}

func TestCellGlyph(t *testing.T) {
	ui := &ConsoleUI{grassFiller: "gg", bareFiller: "  "}
	wolf := island.AgentView{Species: island.Wolf, Symbol: island.Wolf.Symbol(), Alive: true}
	plant := island.AgentView{Species: island.Plant, Symbol: island.Plant.Symbol(), Alive: true}
	dead := island.AgentView{Species: island.Bear, Symbol: island.Bear.Symbol()}
	tests := []struct {
		name string
		cell island.CellView
		want string
	}{
		{"bare", island.CellView{}, "  "},
		{"grass", island.CellView{HasGrass: true}, "gg"},
		{"dead agent", island.CellView{HasGrass: true, Agents: []island.AgentView{dead}}, "gg"},
		{"plant over grass", island.CellView{HasGrass: true, Agents: []island.AgentView{plant}}, plant.Symbol},
		{"animal over plant", island.CellView{Agents: []island.AgentView{plant, wolf}}, wolf.Symbol},
	}
	for _, tt := range tests {
		if got := ui.cellGlyph(tt.cell); got != tt.want {
			t.Errorf("%s: cellGlyph = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDietLabel(t *testing.T) {
	tests := map[island.Species]string{
		island.Wolf:  "carnivore",
		island.Eagle: "carnivore",
		island.Duck:  "herbivore",
		island.Horse: "herbivore",
		island.Plant: "plant",
	}
	for s, want := range tests {
		if got := dietLabel(s); got != want {
			t.Errorf("dietLabel(%v) = %q, want %q", s, got, want)
		}
	}
}

func TestAppendMessagesBacklog(t *testing.T) {
	ui := &ConsoleUI{}
	for i := 1; i <= DefMessagesBacklog; i++ {
		ui.appendMessages(universe.Status{IterationNum: i}, []string{fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)})
	}
	if len(ui.messages) != DefMessagesBacklog {
		t.Fatalf("%d messages kept, want %d", len(ui.messages), DefMessagesBacklog)
	}
	if last := ui.messages[len(ui.messages)-1]; !strings.HasSuffix(last, fmt.Sprintf("b%d", DefMessagesBacklog)) {
		t.Errorf("last message %q", last)
	}
	ui.appendMessages(universe.Status{IterationNum: DefMessagesBacklog}, []string{"again"})
	if len(ui.messages) != DefMessagesBacklog {
		t.Error("the same tick was appended twice")
	}
	ui.appendMessages(universe.Status{}, nil)
	if len(ui.messages) != 0 {
		t.Error("clear kept the messages")
	}
}
