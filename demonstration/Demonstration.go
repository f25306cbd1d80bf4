// Package demonstration loads demonstration trajectories recorded from
// human or bot play sessions. Demonstrations are used as reference
// trajectories by the reward shapers.
//
// A demonstration file holds one play session. Files in a directory are
// always loaded in lexicographic order so that selecting a subset of
// demonstrations is deterministic.
package demonstration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("dotarl.demonstration")

// Processor converts a single serialized demonstration file into a
// demonstration of type D
type Processor[D any] func(name string, r io.Reader) (D, error)

// Load lists the regular files in dir, sorts them by name, and
// converts each file into a single demonstration using process. Any
// file that cannot be read or processed is a fatal error.
func Load[D any](dir string, process Processor[D]) ([]D, error) {
	names, err := List(dir)
	if err != nil {
		return nil, err
	}

	demos := make([]D, 0, len(names))
	for _, name := range names {
		demo, err := LoadFile(filepath.Join(dir, name), process)
		if err != nil {
			return nil, err
		}
		demos = append(demos, demo)
	}
	log.Debugf("loaded %d demonstrations from %v", len(demos), dir)

	return demos, nil
}

// LoadN loads the first n demonstrations in dir, in the same order as
// Load. It is an error if dir holds fewer than n demonstrations.
func LoadN[D any](dir string, n int, process Processor[D]) ([]D, error) {
	names, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(names) < n {
		return nil, fmt.Errorf("loadN: need %v demonstrations in %v, found %v",
			n, dir, len(names))
	}

	demos := make([]D, n)
	for i, name := range names[:n] {
		demos[i], err = LoadFile(filepath.Join(dir, name), process)
		if err != nil {
			return nil, err
		}
	}
	return demos, nil
}

// LoadFile converts a single file into a demonstration
func LoadFile[D any](path string, process Processor[D]) (D, error) {
	var demo D

	file, err := os.Open(path)
	if err != nil {
		return demo, fmt.Errorf("loadFile: %w", err)
	}
	defer file.Close()

	demo, err = process(filepath.Base(path), file)
	if err != nil {
		return demo, fmt.Errorf("loadFile: could not process %v: %w", path,
			err)
	}
	return demo, nil
}

// List returns the sorted names of the regular files in dir
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list: could not read demonstration "+
			"directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
