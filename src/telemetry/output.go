package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

//OutputManager writes the run telemetry as CSV files
//a nil manager is valid and discards everything
type OutputManager struct {
	dir        string
	ticksFile  *os.File
	censusFile *os.File

	ticksHeaderWritten  bool
	censusHeaderWritten bool
}

//NewOutputManager creates the output directory and the CSV files
//returns nil if dir is empty (output disabled)
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	f, err := os.Create(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks.csv: %w", err)
	}
	om.ticksFile = f

	f, err = os.Create(filepath.Join(dir, "census.csv"))
	if err != nil {
		om.ticksFile.Close()
		return nil, fmt.Errorf("creating census.csv: %w", err)
	}
	om.censusFile = f
	return om, nil
}

//WriteTick appends a record to ticks.csv
func (om *OutputManager) WriteTick(r TickRecord) error {
	if om == nil {
		return nil
	}
	if err := writeRecords([]TickRecord{r}, om.ticksFile, &om.ticksHeaderWritten); err != nil {
		return fmt.Errorf("writing ticks: %w", err)
	}
	return nil
}

//WriteCensus appends the species records of one tick to census.csv
func (om *OutputManager) WriteCensus(records []SpeciesRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := writeRecords(records, om.censusFile, &om.censusHeaderWritten); err != nil {
		return fmt.Errorf("writing census: %w", err)
	}
	return nil
}

//writeRecords marshals the records, the header goes with the first write only
func writeRecords(records interface{}, f *os.File, headerWritten *bool) error {
	if *headerWritten {
		return gocsv.MarshalWithoutHeaders(records, f)
	}
	if err := gocsv.Marshal(records, f); err != nil {
		return err
	}
	*headerWritten = true
	return nil
}

func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

//Close closes the output files
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, f := range []*os.File{om.ticksFile, om.censusFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
