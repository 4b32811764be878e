package island

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed species.yaml
var speciesYAML []byte

//Species is the closed set of agent kinds living on the island
type Species uint8

const (
	Wolf Species = iota
	Boa
	Fox
	Bear
	Eagle
	Horse
	Deer
	Rabbit
	Mouse
	Goat
	Sheep
	Boar
	Buffalo
	Duck
	Caterpillar
	Plant

	NumSpecies = int(Plant) + 1
)

//Diet describes what a species is able to feed on
type Diet string

const (
	DietCarnivore Diet = "carnivore"
	DietHerbivore Diet = "herbivore"
	DietPlant     Diet = "plant"
)

//Capability is the diet summary of a species
type Capability struct {
	IsCarnivore bool
	EatsPlants  bool
	Mobile      bool
}

type preyDoc struct {
	Chance int     `yaml:"chance"`
	Food   float64 `yaml:"food"`
}

type speciesDoc struct {
	Name       string             `yaml:"name"`
	Symbol     string             `yaml:"symbol"`
	Vitality   int                `yaml:"vitality"`
	MaxSatiety float64            `yaml:"max_satiety"`
	Diet       Diet               `yaml:"diet"`
	Prey       map[string]preyDoc `yaml:"prey"`
}

//profile is the static, read-only description of one species
type profile struct {
	name       string
	symbol     string
	vitality   int
	maxSatiety float64
	diet       Diet
	capture    [NumSpecies]int
	food       [NumSpecies]float64
}

var catalog = mustLoadCatalog(speciesYAML)

func mustLoadCatalog(data []byte) [NumSpecies]profile {
	c, err := loadCatalog(data)
	if err != nil {
		panic(fmt.Sprintf("island: species catalog: %v", err))
	}
	return c
}

//loadCatalog decodes the catalog document, the entries order defines the Species values
func loadCatalog(data []byte) (c [NumSpecies]profile, err error) {
	var docs []speciesDoc
	if err = yaml.Unmarshal(data, &docs); err != nil {
		return c, fmt.Errorf("decode: %w", err)
	}
	if len(docs) != NumSpecies {
		return c, fmt.Errorf("expected %d species, got %d", NumSpecies, len(docs))
	}
	index := make(map[string]Species, len(docs))
	for i, d := range docs {
		if _, dup := index[d.Name]; dup {
			return c, fmt.Errorf("duplicate species %q", d.Name)
		}
		index[d.Name] = Species(i)
	}
	for i, d := range docs {
		switch d.Diet {
		case DietCarnivore, DietHerbivore, DietPlant:
		default:
			return c, fmt.Errorf("species %q: unknown diet %q", d.Name, d.Diet)
		}
		if d.Vitality <= 0 || d.MaxSatiety < 0 {
			return c, fmt.Errorf("species %q: invalid vitality or satiety", d.Name)
		}
		p := profile{
			name:       d.Name,
			symbol:     d.Symbol,
			vitality:   d.Vitality,
			maxSatiety: d.MaxSatiety,
			diet:       d.Diet,
		}
		for preyName, pd := range d.Prey {
			prey, ok := index[preyName]
			if !ok {
				return c, fmt.Errorf("species %q: unknown prey %q", d.Name, preyName)
			}
			if pd.Chance < 0 || pd.Chance > 100 {
				return c, fmt.Errorf("species %q: chance for %q out of range", d.Name, preyName)
			}
			p.capture[prey] = pd.Chance
			p.food[prey] = pd.Food
		}
		c[i] = p
	}
	return c, nil
}

func (s Species) profile() *profile {
	if int(s) >= NumSpecies {
		panic(fmt.Sprintf("island: unknown species %d", uint8(s)))
	}
	return &catalog[s]
}

func (s Species) String() string {
	if int(s) >= NumSpecies {
		return fmt.Sprintf("Species(%d)", uint8(s))
	}
	return catalog[s].name
}

//Symbol returns the display glyph
func (s Species) Symbol() string {
	return s.profile().symbol
}

//InitialVitality returns the vitality of a freshly created individual
func (s Species) InitialVitality() int {
	return s.profile().vitality
}

//AllSpecies lists every species in catalog order
func AllSpecies() []Species {
	all := make([]Species, NumSpecies)
	for i := range all {
		all[i] = Species(i)
	}
	return all
}

func MaxSatiety(s Species) float64 {
	return s.profile().maxSatiety
}

func CapabilityOf(s Species) Capability {
	p := s.profile()
	return Capability{
		IsCarnivore: p.diet == DietCarnivore,
		EatsPlants:  p.diet == DietHerbivore,
		Mobile:      p.diet != DietPlant,
	}
}

//CaptureProbability returns the percent chance the predator kills the prey, 0 if it can't eat it
func CaptureProbability(predator, prey Species) int {
	p := predator.profile()
	return p.capture[prey.index()]
}

//NutritionValue returns how much satiety the predator gains from the prey
func NutritionValue(predator, prey Species) float64 {
	p := predator.profile()
	return p.food[prey.index()]
}

func (s Species) index() int {
	if int(s) >= NumSpecies {
		panic(fmt.Sprintf("island: unknown species %d", uint8(s)))
	}
	return int(s)
}
