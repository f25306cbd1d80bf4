// Package trackers implements Trackers, which track and save data
// generated while training or evaluating an agent
package trackers

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ts "github.com/samuelfneumann/dotarl/timestep"
)

// Tracker keeps track of experiment data and saves the data to disk
type Tracker interface {
	Track(t ts.TimeStep)
	Save() error
}

// LoadData loads and returns the data saved by a Tracker
func LoadData[T any](filename string) ([]T, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %w", err)
	}
	defer file.Close()

	var data []T
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %w", err)
	}
	return data, nil
}

// save gob-encodes data to filename. The data is written to a
// temporary file first so that an interrupted save never truncates
// previously saved data.
func save(filename string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	tmp := filename + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("save: could not encode data: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return os.Rename(tmp, filename)
}

// exists returns whether filename exists
func exists(filename string) bool {
	_, err := os.Stat(filename)
	return !errors.Is(err, os.ErrNotExist)
}
