package view

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"
	"go.uber.org/zap"

	"islandsim/src/island"
	"islandsim/src/universe"
)

//DefMessagesBacklog is the number of tick messages kept by the messages panel
const DefMessagesBacklog = 200

type keyBindings struct {
	key      interface{}
	name     string
	descr    string
	handler  func(v *gocui.View) error
	viewName string
}

//ConsoleUI is the interactive terminal viewer
//every gocui view is touched inside g.Update, so the fields below belong to the gui goroutine
type ConsoleUI struct {
	u   universe.Universe
	g   *gocui.Gui
	k   []keyBindings
	log *zap.Logger

	grassProbability float64
	grassFiller      string
	bareFiller       string

	messages []string
	lastIter int
	selected struct {
		x, y int
		ok   bool
	}
}

var (
	runningStateDescr = map[universe.RunningState]string{
		universe.RunningStateManual:   aurora.Colorize("waiting", aurora.BlueFg).String(),
		universe.RunningStateStep:     "do the step",
		universe.RunningStateRun:      aurora.Colorize("running", aurora.CyanFg).String(),
		universe.RunningStateFinished: aurora.Colorize("finished", aurora.RedFg).String(),
	}
)

//NewViewTerminal creates the terminal viewer, grassProbability is used when the island is reseeded
func NewViewTerminal(grassProbability float64, log *zap.Logger) (*ConsoleUI, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := ConsoleUI{
		log:              log,
		grassProbability: grassProbability,
		grassFiller:      aurora.Green("░░").BgBlack().String(),
		bareFiller:       "  ",
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	t.g = g
	t.g.Mouse = true
	t.k = []keyBindings{
		{gocui.KeyCtrlC,
			"^C",
			"Exit",
			t.cmdQuit,
			""},
		{'n',
			"N",
			"Next step",
			t.cmdNextRound,
			""},
		{'r',
			"R",
			"Run",
			t.cmdRun,
			""},
		{'s',
			"S",
			"Stop",
			t.cmdStop,
			""},
		{'c',
			"C",
			"Clear",
			t.cmdClear,
			""},
		{'w',
			"W",
			"Reseed",
			t.cmdReseed,
			""},
		{gocui.MouseLeft,
			"MOUSE",
			"Inspect the cell",
			t.cmdMouseClick,
			"island"},
	}
	t.g.SetManagerFunc(t.layout)

	if err := t.initKeyBindings(t.k); err != nil {
		t.g.Close()
		return nil, err
	}
	return &t, nil
}

func (t *ConsoleUI) initKeyBindings(k []keyBindings) error {
	for _, kb := range k {
		h := kb.handler
		if err := t.g.SetKeybinding(kb.viewName, kb.key, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error { return h(view) }); err != nil {
			return fmt.Errorf("key binding %s: %w", kb.name, err)
		}
	}
	return nil
}

func (t *ConsoleUI) Register(u universe.Universe) {
	t.u = u
}

//Start runs the terminal main loop until the user quits
func (t *ConsoleUI) Start() {
	if err := t.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		t.log.Error("terminal main loop", zap.Error(err))
	}
	t.g.Close()
}

func (t *ConsoleUI) Refresh() {
	s := t.u.Snapshot()
	st := t.u.Status()
	msgs := t.u.Messages()
	t.g.Update(func(g *gocui.Gui) error {
		t.appendMessages(st, msgs)
		t.renderIsland(g, s)
		t.renderInspector(g, s)
		t.renderMessages(g)
		return nil
	})
	t.renderConfiguration()
	t.renderStatus(st)
}

//appendMessages keeps the latest messages, a cleared universe clears the panel
func (t *ConsoleUI) appendMessages(st universe.Status, msgs []string) {
	if st.IterationNum < t.lastIter {
		t.messages = t.messages[:0]
	}
	if st.IterationNum > t.lastIter {
		for _, m := range msgs {
			t.messages = append(t.messages, fmt.Sprintf("%4d %s", st.IterationNum, m))
		}
		if n := len(t.messages) - DefMessagesBacklog; n > 0 {
			t.messages = append(t.messages[:0], t.messages[n:]...)
		}
	}
	t.lastIter = st.IterationNum
}

//cellGlyph renders one cell as two terminal columns
//the first live mobile agent wins over the plant filler, the grass is the background
func (t *ConsoleUI) cellGlyph(c island.CellView) string {
	var plant string
	for _, a := range c.Agents {
		if !a.Alive {
			continue
		}
		if !island.CapabilityOf(a.Species).Mobile {
			plant = a.Symbol
			continue
		}
		return a.Symbol
	}
	if plant != "" {
		return plant
	}
	if c.HasGrass {
		return t.grassFiller
	}
	return t.bareFiller
}

func (t *ConsoleUI) renderIsland(g *gocui.Gui, s island.Snapshot) {
	v, e := g.View("island")
	if e != nil {
		return
	}
	//the entire island is redrawing at once
	v.Clear()

	crop := false
	maxW, maxH := v.Size()
	maxW /= 2
	if s.Width > maxW || s.Height > maxH {
		crop = true
	}

	var b bytes.Buffer
	for y, row := range s.Cells {
		//discard the data outside the view area
		if y >= maxH {
			break
		}
		//line feed char
		if y != 0 {
			b.WriteByte(10)
		}
		if crop && y == (maxH-1) {
			b.WriteString(aurora.Red("The island is larger than the viewing area").BgBlack().String())
			break
		}
		for x, c := range row {
			if x >= maxW {
				break
			}
			if t.selected.ok && t.selected.x == x && t.selected.y == y {
				b.WriteString(aurora.Colorize(t.cellGlyph(c), aurora.CyanBg).String())
				continue
			}
			b.WriteString(t.cellGlyph(c))
		}
	}
	_, _ = fmt.Fprint(v, b.String())
}

func (t *ConsoleUI) renderInspector(g *gocui.Gui, s island.Snapshot) {
	v, e := g.View("inspector")
	if e != nil {
		return
	}
	v.Clear()
	if !t.selected.ok {
		_, _ = fmt.Fprintln(v, " click a cell")
		return
	}
	c, ok := s.CellAt(t.selected.x, t.selected.y)
	if !ok {
		return
	}
	_, _ = fmt.Fprintln(v, t.renderProp("Cell", "(%d, %d)", t.selected.x, t.selected.y))
	_, _ = fmt.Fprintln(v, t.renderProp("Grass", "%v", c.HasGrass))
	for _, a := range c.Agents {
		_, _ = fmt.Fprintf(v, " %s %-11s %-9s %5.2f/%.2f %s\n",
			a.Symbol, a.Species, dietLabel(a.Species), a.Satiety, island.MaxSatiety(a.Species), a.Heading)
	}
}

//dietLabel names what the species feeds on
func dietLabel(s island.Species) string {
	c := island.CapabilityOf(s)
	switch {
	case c.IsCarnivore:
		return "carnivore"
	case c.EatsPlants:
		return "herbivore"
	}
	return "plant"
}

func (t *ConsoleUI) renderMessages(g *gocui.Gui) {
	v, e := g.View("messages")
	if e != nil {
		return
	}
	v.Clear()
	_, maxH := v.Size()
	from := len(t.messages) - maxH
	if from < 0 {
		from = 0
	}
	_, _ = fmt.Fprint(v, strings.Join(t.messages[from:], "\n"))
}

func (t *ConsoleUI) renderStatus(s universe.Status) {
	t.g.Update(func(g *gocui.Gui) error {
		if v, e := g.View("status"); e == nil {
			v.Clear()
			_, _ = fmt.Fprintln(v, t.renderProp("Step", "%v", s.IterationNum))
			_, _ = fmt.Fprintln(v, t.renderProp("Population", "%v", s.Population))
			_, _ = fmt.Fprintln(v, t.renderProp("Grass cells", "%v", s.GrassCells))
			_, _ = fmt.Fprintln(v, t.renderProp("Events", "%v", s.Events))
			_, _ = fmt.Fprintln(v, t.renderProp("Evaluation time", "%v", s.IterationTime.Round(time.Microsecond)))
			_, _ = fmt.Fprintln(v, t.renderProp("Sim time", "%v", s.SimTime.Format("15:04:05")))
			_, _ = fmt.Fprintln(v, t.renderProp("Mode", "%v", runningStateDescr[s.RunningMode]))
		}
		return nil
	})
}

func (t *ConsoleUI) renderConfiguration() {
	//it needs to call Update when calls from goroutine
	t.g.Update(func(g *gocui.Gui) error {
		c := t.u.Options()
		if v, e := g.View("configuration"); e == nil {
			v.Clear()
			_, _ = fmt.Fprintln(v, t.renderProp("Dimension", "%v", dimension(c.Width, c.Height)))
			_, _ = fmt.Fprintln(v, t.renderProp("Interval", "%v", c.Interval))
			_, _ = fmt.Fprintln(v, t.renderProp("Iterations", "%v steps", c.MaxSteps))
			_, _ = fmt.Fprintln(v, t.renderProp("Engine", "%v", c.Advanced["engine"]))
			if c.VirtualTime > 0 {
				_, _ = fmt.Fprintln(v, t.renderProp("Virtual time", "%v per step", c.VirtualTime))
			}
		}
		return nil
	})
}

func (t *ConsoleUI) renderProp(name string, valueformat string, values ...interface{}) string {
	return fmt.Sprintf(" "+aurora.Colorize(name, aurora.GreenFg).String()+": "+valueformat, values...)
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {

	maxX, maxY := g.Size()
	leftColumnWidth := 34
	minWindowHeight := 24
	islandBottom := 3 + (maxY-5-3)*2/3

	if maxY < minWindowHeight {
		if _, err := t.headerLayout(g, maxY, "Terminal height too small"); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
		}
		for _, name := range []string{"configuration", "status", "inspector", "island", "messages"} {
			_ = g.DeleteView(name)
		}
		return nil
	}
	if _, err := t.headerLayout(g, 3, "Island ecosystem simulation"); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
	}

	if v, err := g.SetView("configuration", 0, 3, leftColumnWidth, 9); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Configuration"
		v.Frame = true
		t.renderConfiguration()
	}

	if v, err := g.SetView("status", 0, 10, leftColumnWidth, 18); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Status"
		v.Frame = true
		t.renderStatus(t.u.Status())
	}

	if v, err := g.SetView("inspector", 0, 19, leftColumnWidth, maxY-5); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Cell"
		v.Frame = true
	}

	s := t.u.Snapshot()
	if v, err := g.SetView("island", leftColumnWidth+1, 3, maxX-1, islandBottom); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Island"
		v.Frame = true
	}
	t.renderIsland(g, s)
	t.renderInspector(g, s)

	if v, err := g.SetView("messages", leftColumnWidth+1, islandBottom+1, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Messages"
		v.Frame = true
		v.Wrap = true
	}
	t.renderMessages(g)

	if v, err := g.SetView("help", -1, maxY-5, maxX, maxY-3); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Frame = false
		b := bytes.Buffer{}
		b.WriteString("KEYBINDINGS: ")
		for i, k := range t.k {
			if i != 0 {
				b.WriteString(", ")
			}
			b.WriteString(aurora.Green(k.name).String())
			b.WriteString(": ")
			b.WriteString(k.descr)
		}
		_, _ = fmt.Fprintln(v, b.String())
	}

	return nil
}

func (t *ConsoleUI) headerLayout(g *gocui.Gui, height int, text string) (v *gocui.View, err error) {
	maxX, _ := g.Size()
	if v, err = g.SetView("header", -1, -1, maxX+1, height); err != nil {
		if err == gocui.ErrUnknownView && v != nil {
			v.Frame = false
			v.BgColor = gocui.ColorCyan
			v.FgColor = gocui.ColorBlack
		}
	}
	if v != nil {
		v.Clear()
		pad := 0
		if maxX > len(text) {
			pad = (maxX - len(text)) / 2
		}
		_, _ = fmt.Fprintln(v, strings.Repeat("\n", height/2+1)+strings.Repeat(" ", pad)+text)
	}
	return
}

func (t *ConsoleUI) cmdQuit(_ *gocui.View) error {
	return gocui.ErrQuit
}

func (t *ConsoleUI) cmdNextRound(_ *gocui.View) error {
	t.u.Step()
	return nil
}

func (t *ConsoleUI) cmdRun(_ *gocui.View) error {
	t.u.Run()
	return nil
}

func (t *ConsoleUI) cmdStop(_ *gocui.View) error {
	t.u.Stop()
	return nil
}

func (t *ConsoleUI) cmdClear(_ *gocui.View) error {
	t.u.Clear()
	return nil
}

//cmdReseed clears the island and settles it again, ignored while running
func (t *ConsoleUI) cmdReseed(_ *gocui.View) error {
	mode := t.u.Status().RunningMode
	if mode != universe.RunningStateManual && mode != universe.RunningStateFinished {
		return nil
	}
	t.u.Clear()
	go func() {
		if err := t.u.Settle(t.grassProbability); err != nil {
			t.log.Warn("reseed", zap.Error(err))
		}
	}()
	return nil
}

//cmdMouseClick selects the cell under the cursor for the inspector
func (t *ConsoleUI) cmdMouseClick(v *gocui.View) error {
	cx, cy := v.Cursor()
	ox, oy := v.Origin()
	x, y := (cx+ox)/2, cy+oy
	s := t.u.Snapshot()
	if _, ok := s.CellAt(x, y); !ok {
		t.selected.ok = false
	} else {
		t.selected.x, t.selected.y, t.selected.ok = x, y, true
	}
	t.renderIsland(t.g, s)
	t.renderInspector(t.g, s)
	return nil
}

func dimension(width int, height int) string {
	return fmt.Sprintf("%v x %v", width, height)
}
