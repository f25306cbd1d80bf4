package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network in a computational graph
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the learnables of a fully connected layer with in
// inputs and out outputs to g
func newFCLayer(g *G.ExprGraph, in, out, index int,
	act *Activation) *fcLayer {
	weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
		G.WithName(fmt.Sprintf("L%dW", index)), G.WithInit(G.Zeroes()))
	bias := G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
		G.WithName(fmt.Sprintf("L%dB", index)), G.WithInit(G.Zeroes()))

	return &fcLayer{weights: weights, bias: bias, act: act}
}

// Fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x = G.Must(G.Mul(x, f.weights))

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x = G.Must(G.BroadcastAdd(x, f.bias, nil, []byte{0}))
	return f.act.fwd(x)
}

// set sets the values of the layer's learnables
func (f *fcLayer) set(weights, bias *mat.Dense) error {
	if err := G.Let(f.weights, denseToTensor(weights)); err != nil {
		return fmt.Errorf("set: could not set weights: %w", err)
	}
	if err := G.Let(f.bias, denseToTensor(bias)); err != nil {
		return fmt.Errorf("set: could not set bias: %w", err)
	}
	return nil
}

// get copies the values of the layer's learnables into weights and bias
func (f *fcLayer) get(weights, bias *mat.Dense) {
	tensorToDense(f.weights.Value(), weights)
	tensorToDense(f.bias.Value(), bias)
}

// denseToTensor returns a tensor holding a copy of the values of m
func denseToTensor(m *mat.Dense) *tensor.Dense {
	r, c := m.Dims()
	backing := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		backing = append(backing, m.RawRowView(i)...)
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(backing))
}

// tensorToDense copies the values of v into m
func tensorToDense(v G.Value, m *mat.Dense) {
	data := v.Data().([]float64)
	_, c := m.Dims()
	for i := 0; i*c < len(data); i++ {
		copy(m.RawRowView(i), data[i*c:(i+1)*c])
	}
}
