// Package nn decodes SANE blueprints into runnable single-hidden-layer networks.
package nn

import (
	"fmt"

	"github.com/baldhumanity/sane-go/sane"
)

// link is one weighted connection between a hidden unit and an input or output.
type link struct {
	Index  int
	Weight float64
}

// hiddenUnit is a decoded neuron genome.
type hiddenUnit struct {
	NeuronKey int
	Inputs    []link // from network inputs
	Outputs   []link // to network outputs
}

// Network is a feed-forward network with one hidden layer. Each hidden unit
// comes from the neuron genome a blueprint slot points at.
type Network struct {
	NumInputs  int
	NumOutputs int
	Units      []hiddenUnit

	hiddenActivation ActivationFunc
	outputActivation ActivationFunc
	hiddenAggregate  AggregationFunc

	hidden []float64 // last hidden activations
}

// Activate computes the outputs for one input vector.
func (net *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != net.NumInputs {
		return nil, fmt.Errorf("mismatch between input count (%d) and network input nodes (%d)", len(inputs), net.NumInputs)
	}

	outputs := make([]float64, net.NumOutputs)
	var weighted []float64
	for h, unit := range net.Units {
		weighted = weighted[:0]
		for _, in := range unit.Inputs {
			weighted = append(weighted, inputs[in.Index]*in.Weight)
		}
		value := net.hiddenActivation(net.hiddenAggregate(weighted))
		net.hidden[h] = value
		for _, out := range unit.Outputs {
			outputs[out.Index] += value * out.Weight
		}
	}
	for i := range outputs {
		outputs[i] = net.outputActivation(outputs[i])
	}
	return outputs, nil
}

// ClearContext forgets the hidden activations of the previous call.
func (net *Network) ClearContext() {
	for i := range net.hidden {
		net.hidden[i] = 0
	}
}

// Hidden returns the hidden activations of the last Activate call.
func (net *Network) Hidden() []float64 {
	return append([]float64(nil), net.hidden...)
}

// Decoder builds Networks from blueprints.
type Decoder struct {
	config           sane.NetworkConfig
	hiddenActivation ActivationFunc
	outputActivation ActivationFunc
	hiddenAggregate  AggregationFunc
}

// NewDecoder resolves the activation and aggregation functions named in the config.
func NewDecoder(config *sane.NetworkConfig) (*Decoder, error) {
	hiddenAct, err := GetActivation(config.HiddenActivation)
	if err != nil {
		return nil, fmt.Errorf("hidden activation: %w", err)
	}
	outputAct, err := GetActivation(config.OutputActivation)
	if err != nil {
		return nil, fmt.Errorf("output activation: %w", err)
	}
	agg, err := GetAggregation(config.HiddenAggregation)
	if err != nil {
		return nil, fmt.Errorf("hidden aggregation: %w", err)
	}
	return &Decoder{
		config:           *config,
		hiddenActivation: hiddenAct,
		outputActivation: outputAct,
		hiddenAggregate:  agg,
	}, nil
}

// Decode wires one hidden unit per blueprint slot. A connection label below
// NumInputs reads from that input; any other label feeds output
// label-NumInputs.
func (d *Decoder) Decode(blueprint *sane.BlueprintGenome, neurons []*sane.NeuronGenome) (sane.Phenotype, error) {
	net, err := d.DecodeNetwork(blueprint, neurons)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// DecodeNetwork is Decode with a concrete result type.
func (d *Decoder) DecodeNetwork(blueprint *sane.BlueprintGenome, neurons []*sane.NeuronGenome) (*Network, error) {
	numIn, numOut := d.config.NumInputs, d.config.NumOutputs
	net := &Network{
		NumInputs:        numIn,
		NumOutputs:       numOut,
		Units:            make([]hiddenUnit, 0, len(blueprint.Slots)),
		hiddenActivation: d.hiddenActivation,
		outputActivation: d.outputActivation,
		hiddenAggregate:  d.hiddenAggregate,
		hidden:           make([]float64, len(blueprint.Slots)),
	}

	for slot, idx := range blueprint.Slots {
		if idx < 0 || idx >= len(neurons) {
			return nil, fmt.Errorf("blueprint %d slot %d points at neuron %d of %d", blueprint.Key, slot, idx, len(neurons))
		}
		neuron := neurons[idx]
		unit := hiddenUnit{NeuronKey: neuron.Key}
		for _, c := range neuron.Connections {
			switch {
			case c.Label >= 0 && c.Label < numIn:
				unit.Inputs = append(unit.Inputs, link{Index: c.Label, Weight: c.Weight})
			case c.Label >= numIn && c.Label < numIn+numOut:
				unit.Outputs = append(unit.Outputs, link{Index: c.Label - numIn, Weight: c.Weight})
			default:
				return nil, fmt.Errorf("neuron %d has label %d outside [0, %d)", neuron.Key, c.Label, numIn+numOut)
			}
		}
		net.Units = append(net.Units, unit)
	}
	return net, nil
}
