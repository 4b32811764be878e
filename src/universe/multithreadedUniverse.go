package universe

import (
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

/*
	Universe implementation with multithreaded regrowth sweep
	the island is splitted into row bands each of which is swept by individual goroutine
	every band owns a random source derived from the island's one
*/

const (
	DefWorkers          = 4 //default workers
	DefMinRowsPerWorker = 3 //minimum rows for one worker
)

type MultithreadedUniverse struct {
	*BaseUniverse
	workers   int
	workAreas []workArea
}

//workArea describe the rows swept by one worker
type workArea struct {
	y1      int
	y2      int
	dice    *rand.Rand
	regrown int
}

func NewMultithreadedUniverse(o *Options, stateCh chan Status, log *zap.Logger) (Universe, error) {
	bu, err := newBaseUniverse(o, stateCh, log)
	if err != nil {
		return nil, err
	}
	mu := MultithreadedUniverse{BaseUniverse: bu}
	//redefine the sweep
	mu.BaseUniverse.sweep = mu.sweep

	mu.workers = mu.options.Workers
	if mu.workers <= 0 {
		mu.workers = DefWorkers
	}
	_, height := mu.grid.Dimensions()
	linesPerWorker := height / mu.workers
	if linesPerWorker < DefMinRowsPerWorker {
		linesPerWorker = DefMinRowsPerWorker
	} else if linesPerWorker*mu.workers < height {
		linesPerWorker++
	}
	mu.workAreas = make([]workArea, 0, mu.workers)
	dice := mu.grid.Dice()
	for y1 := 0; y1 < height; y1 += linesPerWorker {
		y2 := y1 + linesPerWorker - 1
		if y2 > height-1 {
			y2 = height - 1
		}
		mu.workAreas = append(mu.workAreas, workArea{
			y1:   y1,
			y2:   y2,
			dice: rand.New(rand.NewSource(dice.Int63())),
		})
	}
	mu.workers = len(mu.workAreas)
	mu.options.Advanced["engine"] = "multithreaded"
	mu.options.Advanced["Workers"] = mu.workers
	mu.options.Advanced["Rows per worker"] = linesPerWorker
	mu.start()
	return &mu, nil
}

//sweep regrows the grass band by band in parallel, the caller holds the write lock
//starts goroutines, waiting for finishing and sums the regrown cells
func (mu *MultithreadedUniverse) sweep() (regrown int) {
	p := mu.options.RegrowthProbability
	var g errgroup.Group
	for i := range mu.workAreas {
		wa := &mu.workAreas[i]
		g.Go(func() error {
			wa.regrown = mu.grid.RegrowGrassRows(wa.y1, wa.y2, p, wa.dice)
			return nil
		})
	}
	g.Wait()
	for _, wa := range mu.workAreas {
		regrown += wa.regrown
	}
	return
}
