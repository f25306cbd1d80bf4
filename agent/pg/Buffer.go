package pg

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Buffer stores the (state, action, return) triples of every episode
// sampled while training so that the policy can be trained on them
// repeatedly. A Buffer grows without bound and can be saved to and
// loaded from disk to train offline.
type Buffer struct {
	obsSize int

	obsBuffer [][]float64
	actBuffer []int
	retBuffer []float64

	source rand.Source
}

// bufferData is the serialized form of a Buffer
type bufferData struct {
	ObsSize int
	States  [][]float64
	Actions []int
	Returns []float64
}

// NewBuffer creates and returns a new Buffer of observations of size
// obsSize. Random batches are sampled using seed.
func NewBuffer(obsSize int, seed uint64) *Buffer {
	return &Buffer{
		obsSize: obsSize,
		source:  rand.NewSource(seed),
	}
}

// Extend adds the states, actions and returns of an episode to the
// Buffer
func (b *Buffer) Extend(states [][]float64, actions []int,
	returns []float64) error {
	if len(states) != len(actions) || len(states) != len(returns) {
		return fmt.Errorf("extend: have %v states, %v actions and %v "+
			"returns", len(states), len(actions), len(returns))
	}
	for _, s := range states {
		if len(s) != b.obsSize {
			return fmt.Errorf("extend: illegal obs length \n\twant(%v)"+
				"\n\thave(%v)", b.obsSize, len(s))
		}
	}

	for i := range states {
		b.obsBuffer = append(b.obsBuffer, append([]float64(nil), states[i]...))
	}
	b.actBuffer = append(b.actBuffer, actions...)
	b.retBuffer = append(b.retBuffer, returns...)
	return nil
}

// Len returns the number of steps stored in the Buffer
func (b *Buffer) Len() int {
	return len(b.actBuffer)
}

// Sample returns n steps sampled uniformly at random without
// replacement
func (b *Buffer) Sample(n int) ([][]float64, []int, []float64, error) {
	if n > b.Len() {
		return nil, nil, nil, fmt.Errorf("sample: cannot sample %v steps "+
			"from buffer holding %v", n, b.Len())
	}

	indices := make([]int, n)
	sampleuv.WithoutReplacement(indices, b.Len(), b.source)
	return b.gather(indices)
}

// Batch returns at most n consecutive steps starting at step start
func (b *Buffer) Batch(start, n int) ([][]float64, []int, []float64,
	error) {
	if start < 0 || start >= b.Len() {
		return nil, nil, nil, fmt.Errorf("batch: start %v out of range "+
			"[0, %v)", start, b.Len())
	}
	stop := start + n
	if stop > b.Len() {
		stop = b.Len()
	}

	indices := make([]int, 0, stop-start)
	for i := start; i < stop; i++ {
		indices = append(indices, i)
	}
	return b.gather(indices)
}

func (b *Buffer) gather(indices []int) ([][]float64, []int, []float64,
	error) {
	states := make([][]float64, len(indices))
	actions := make([]int, len(indices))
	returns := make([]float64, len(indices))
	for i, index := range indices {
		states[i] = b.obsBuffer[index]
		actions[i] = b.actBuffer[index]
		returns[i] = b.retBuffer[index]
	}
	return states, actions, returns, nil
}

// Save saves the Buffer to path
func (b *Buffer) Save(path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	data := bufferData{
		ObsSize: b.obsSize,
		States:  b.obsBuffer,
		Actions: b.actBuffer,
		Returns: b.retBuffer,
	}
	if err := gob.NewEncoder(file).Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("save: could not encode buffer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the contents of the Buffer with those saved in path
func (b *Buffer) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer file.Close()

	var data bufferData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("load: could not decode buffer %v: %w", path, err)
	}
	if data.ObsSize != b.obsSize {
		return fmt.Errorf("load: buffer %v holds observations of size %v, "+
			"want %v", path, data.ObsSize, b.obsSize)
	}
	if len(data.States) != len(data.Actions) ||
		len(data.States) != len(data.Returns) {
		return fmt.Errorf("load: buffer %v is corrupt", path)
	}

	b.obsBuffer = data.States
	b.actBuffer = data.Actions
	b.retBuffer = data.Returns
	return nil
}
