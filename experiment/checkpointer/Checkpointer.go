// Package checkpointer saves and restores the state of a training run
// so that it can be resumed after it is stopped
package checkpointer

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/dotarl/network"
)

var log = logging.MustGetLogger("dotarl.checkpointer")

// Filename is the name of the latest checkpoint in a checkpoint
// directory
const Filename string = "checkpoint.gob"

// Checkpoint is the saved state of a training run
type Checkpoint struct {
	Episode    int
	Step       int
	Epsilon    float64
	Parameters map[string][]*mat.Dense
}

// NewCheckpoint returns a Checkpoint holding copies of the parameters
// of each named estimator
func NewCheckpoint(episode, step int, epsilon float64,
	estimators map[string]network.Estimator) *Checkpoint {
	params := make(map[string][]*mat.Dense, len(estimators))
	for name, estimator := range estimators {
		params[name] = estimator.Parameters()
	}

	return &Checkpoint{
		Episode:    episode,
		Step:       step,
		Epsilon:    epsilon,
		Parameters: params,
	}
}

// Apply sets the parameters of each named estimator to those saved in
// the Checkpoint
func (c *Checkpoint) Apply(estimators map[string]network.Estimator) error {
	for name, estimator := range estimators {
		params, ok := c.Parameters[name]
		if !ok {
			return fmt.Errorf("apply: no parameters saved for %q", name)
		}
		if err := estimator.SetParameters(params); err != nil {
			return fmt.Errorf("apply: could not restore %q: %w", name, err)
		}
	}
	return nil
}

// SnapshotName returns the name of the snapshot of the Checkpoint
// taken before episode
func SnapshotName(episode int) string {
	return fmt.Sprintf("snapshot-%v.gob", episode)
}

// Checkpointer saves Checkpoints into a directory. The latest
// Checkpoint is always saved as Filename, and every snapshotEvery'th
// Checkpoint is additionally kept under its SnapshotName.
type Checkpointer struct {
	dir           string
	snapshotEvery int
	saves         int
}

// New returns a new Checkpointer saving into dir, creating dir if
// needed. If snapshotEvery is not positive, no snapshots are kept.
func New(dir string, snapshotEvery int) (*Checkpointer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("new: could not create checkpoint "+
			"directory: %w", err)
	}

	return &Checkpointer{
		dir:           dir,
		snapshotEvery: snapshotEvery,
	}, nil
}

// Dir returns the checkpoint directory
func (c *Checkpointer) Dir() string {
	return c.dir
}

// Save saves cp as the latest checkpoint
func (c *Checkpointer) Save(cp *Checkpoint) error {
	latest := filepath.Join(c.dir, Filename)
	if err := write(latest, cp); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	c.saves++

	if c.snapshotEvery > 0 && c.saves%c.snapshotEvery == 0 {
		snapshot := filepath.Join(c.dir, SnapshotName(cp.Episode))
		if err := write(snapshot, cp); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		log.Debugf("saved snapshot %v", snapshot)
	}
	return nil
}

// Restore loads the latest checkpoint. If no checkpoint has been saved
// Restore returns false and a nil error.
func (c *Checkpointer) Restore() (*Checkpoint, bool, error) {
	cp, err := Load(filepath.Join(c.dir, Filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("restore: %w", err)
	}
	return cp, true, nil
}

// Load loads a checkpoint from a file
func Load(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := gob.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("load: could not decode checkpoint %v: %w",
			path, err)
	}
	return &cp, nil
}

// write gob-encodes cp into path through a temporary file so that a
// crash while saving never corrupts the previous checkpoint
func write(path string, cp *Checkpoint) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(cp); err != nil {
		file.Close()
		return fmt.Errorf("could not encode checkpoint: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
