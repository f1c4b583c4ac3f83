package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/sane-go/sane"
)

func linearDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder(&sane.NetworkConfig{
		NumInputs:         2,
		NumOutputs:        2,
		NumHidden:         2,
		HiddenActivation:  "identity",
		OutputActivation:  "identity",
		HiddenAggregation: "sum",
	})
	require.NoError(t, err)
	return d
}

func neuron(key int, genes ...sane.ConnectionGene) *sane.NeuronGenome {
	n := sane.NewNeuronGenome(key, len(genes))
	copy(n.Connections, genes)
	return n
}

func TestDecodeRoutesLabels(t *testing.T) {
	d := linearDecoder(t)
	neurons := []*sane.NeuronGenome{
		// reads input 0, writes output 1 (label 3)
		neuron(1, sane.ConnectionGene{Label: 0, Weight: 2}, sane.ConnectionGene{Label: 3, Weight: 0.5}),
		// reads input 1, writes output 0 (label 2)
		neuron(2, sane.ConnectionGene{Label: 1, Weight: -1}, sane.ConnectionGene{Label: 2, Weight: 3}),
	}
	bp := &sane.BlueprintGenome{Slots: []int{0, 1}}

	net, err := d.DecodeNetwork(bp, neurons)
	require.NoError(t, err)
	require.Len(t, net.Units, 2)
	assert.Equal(t, 1, net.Units[0].NeuronKey)

	out, err := net.Activate([]float64{1, 2})
	require.NoError(t, err)
	// hidden0 = 2*1 = 2 -> out1 += 1; hidden1 = -1*2 = -2 -> out0 += -6
	assert.InDeltaSlice(t, []float64{-6, 1}, out, 1e-12)
	assert.InDeltaSlice(t, []float64{2, -2}, net.Hidden(), 1e-12)

	net.ClearContext()
	assert.Equal(t, []float64{0, 0}, net.Hidden())
}

func TestDecodeSharedNeuron(t *testing.T) {
	d := linearDecoder(t)
	neurons := []*sane.NeuronGenome{
		neuron(1, sane.ConnectionGene{Label: 0, Weight: 1}, sane.ConnectionGene{Label: 2, Weight: 1}),
	}
	net, err := d.DecodeNetwork(&sane.BlueprintGenome{Slots: []int{0, 0}}, neurons)
	require.NoError(t, err)

	out, err := net.Activate([]float64{3, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{6, 0}, out, 1e-12)
}

func TestDecodeIsDeterministic(t *testing.T) {
	cfg := sane.DefaultConfig()
	d, err := NewDecoder(&cfg.Network)
	require.NoError(t, err)

	neurons := []*sane.NeuronGenome{
		neuron(1, sane.ConnectionGene{Label: 0, Weight: 0.3}, sane.ConnectionGene{Label: 6, Weight: 1}, sane.ConnectionGene{Label: 2, Weight: -0.7}, sane.ConnectionGene{Label: 7, Weight: 0.2}),
		neuron(2, sane.ConnectionGene{Label: 5, Weight: 0.9}, sane.ConnectionGene{Label: 1, Weight: 1.5}, sane.ConnectionGene{Label: 6, Weight: -2}, sane.ConnectionGene{Label: 4, Weight: 0.1}),
	}
	bp := &sane.BlueprintGenome{Slots: []int{1, 0, 1, 0, 0}}
	inputs := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}

	first, err := d.Decode(bp, neurons)
	require.NoError(t, err)
	second, err := d.Decode(bp, neurons)
	require.NoError(t, err)

	a, err := first.(*Network).Activate(inputs)
	require.NoError(t, err)
	b, err := second.(*Network).Activate(inputs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.True(t, v > 0 && v < 1)
	}
}

func TestDecodeErrors(t *testing.T) {
	d := linearDecoder(t)
	good := neuron(1, sane.ConnectionGene{Label: 0, Weight: 1}, sane.ConnectionGene{Label: 2, Weight: 1})
	bad := neuron(2, sane.ConnectionGene{Label: 0, Weight: 1}, sane.ConnectionGene{Label: 4, Weight: 1})

	p, err := d.Decode(&sane.BlueprintGenome{Slots: []int{0, 1}}, []*sane.NeuronGenome{good})
	assert.Error(t, err)
	assert.Nil(t, p)

	_, err = d.Decode(&sane.BlueprintGenome{Slots: []int{0, 1}}, []*sane.NeuronGenome{good, bad})
	assert.Error(t, err)

	net, err := d.DecodeNetwork(&sane.BlueprintGenome{Slots: []int{0, 0}}, []*sane.NeuronGenome{good})
	require.NoError(t, err)
	_, err = net.Activate([]float64{1})
	assert.Error(t, err)
}

func TestNewDecoderRejectsUnknownFunctions(t *testing.T) {
	cfg := sane.DefaultConfig().Network
	cfg.HiddenActivation = "softsign"
	_, err := NewDecoder(&cfg)
	assert.Error(t, err)

	cfg = sane.DefaultConfig().Network
	cfg.HiddenAggregation = "mode"
	_, err = NewDecoder(&cfg)
	assert.Error(t, err)
}

func TestActivations(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
	assert.False(t, math.IsNaN(Sigmoid(-1e6)))
	assert.Equal(t, 0.0, ReLU(-2))
	assert.Equal(t, 1.0, Clamped(4))
	assert.Equal(t, 1.0, Step(0.1))
	assert.Equal(t, 0.0, Step(0))
	assert.Equal(t, 0.0, Hat(2))
	assert.Equal(t, 1.0, Gaussian(0))

	for name := range Activations {
		fn, err := GetActivation(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}
	_, err := GetActivation("nope")
	assert.Error(t, err)
}

func TestAggregations(t *testing.T) {
	in := []float64{4, 1, 3}
	tests := map[string]float64{
		"sum":     8,
		"product": 12,
		"min":     1,
		"max":     4,
		"mean":    8.0 / 3.0,
		"median":  3,
	}
	for name, want := range tests {
		fn, err := GetAggregation(name)
		require.NoError(t, err, name)
		assert.InDelta(t, want, fn(in), 1e-12, name)
		assert.Zero(t, fn(nil), name)
	}
	assert.Equal(t, 2.5, AggregateMedian([]float64{4, 1, 3, 2}))
	assert.Equal(t, []float64{4, 1, 3}, in)

	_, err := GetAggregation("mode")
	assert.Error(t, err)
}
