package sane

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Snapshot holds both populations as flat member lists per species, which
// is all that is needed to resume training.
type Snapshot struct {
	RunID                   string
	Generation              int
	SavedAt                 time.Time
	NeuronPopulationSize    int
	BlueprintPopulationSize int
	NeuronSpecies           [][]*NeuronGenome
	BlueprintSpecies        [][]*BlueprintGenome
	Best                    *BlueprintGenome // may be nil
	BestNeurons             []*NeuronGenome  // neurons Best was scored with, in slot order
}

// Snapshot copies the committed populations. Call it between generations.
func (t *Trainer) Snapshot() *Snapshot {
	s := &Snapshot{
		Generation:              t.generation,
		SavedAt:                 time.Now(),
		NeuronPopulationSize:    t.neurons.PopulationSize,
		BlueprintPopulationSize: t.blueprints.PopulationSize,
	}
	for _, sp := range t.neurons.Species {
		members := make([]*NeuronGenome, len(sp.Members))
		for i, n := range sp.Members {
			members[i] = n.Copy()
		}
		s.NeuronSpecies = append(s.NeuronSpecies, members)
	}
	for _, sp := range t.blueprints.Species {
		members := make([]*BlueprintGenome, len(sp.Members))
		for i, b := range sp.Members {
			members[i] = b.Copy()
		}
		s.BlueprintSpecies = append(s.BlueprintSpecies, members)
	}
	if best := t.BestGenome(); best != nil {
		s.Best = best.Copy()
		for _, n := range t.BestNeurons() {
			s.BestNeurons = append(s.BestNeurons, n.Copy())
		}
	}
	return s
}

// BestAssembly returns the best blueprint rewired to address neurons, the
// exact neurons it was scored with. ok is false when the snapshot has no
// best or its neurons were not recorded.
func (s *Snapshot) BestAssembly() (bp *BlueprintGenome, neurons []*NeuronGenome, ok bool) {
	if s.Best == nil || len(s.BestNeurons) != len(s.Best.Slots) {
		return nil, nil, false
	}
	bp = s.Best.Copy()
	for i := range bp.Slots {
		bp.Slots[i] = i
	}
	return bp, s.BestNeurons, true
}

// Populations rebuilds the two populations. Species keys are their
// positions starting at 1; quotas are recomputed by the trainer.
func (s *Snapshot) Populations() (*Population[*NeuronGenome], *Population[*BlueprintGenome]) {
	neurons := &Population[*NeuronGenome]{Name: "neurons", PopulationSize: s.NeuronPopulationSize}
	for i, members := range s.NeuronSpecies {
		if len(members) > 0 {
			neurons.Species = append(neurons.Species, &Species[*NeuronGenome]{Key: i + 1, Members: members})
		}
	}
	blueprints := &Population[*BlueprintGenome]{Name: "blueprints", PopulationSize: s.BlueprintPopulationSize}
	for i, members := range s.BlueprintSpecies {
		if len(members) > 0 {
			blueprints.Species = append(blueprints.Species, &Species[*BlueprintGenome]{Key: i + 1, Members: members})
		}
	}
	return neurons, blueprints
}

// GeneNeurons lists the snapshot's neurons in the order blueprint slots address.
func (s *Snapshot) GeneNeurons() []*NeuronGenome {
	var out []*NeuronGenome
	for _, members := range s.NeuronSpecies {
		out = append(out, members...)
	}
	return out
}

// EncodeSnapshot writes a gzip-compressed gob encoding of the snapshot.
func EncodeSnapshot(w io.Writer, s *Snapshot) error {
	gzWriter := gzip.NewWriter(w)
	if err := gob.NewEncoder(gzWriter).Encode(s); err != nil {
		_ = gzWriter.Close()
		return errors.Wrap(err, "failed to encode snapshot")
	}
	return errors.Wrap(gzWriter.Close(), "failed to flush snapshot")
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip reader for snapshot")
	}
	defer gzReader.Close()

	s := &Snapshot{}
	if err := gob.NewDecoder(gzReader).Decode(s); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	return s, nil
}

// MarshalSnapshot encodes a snapshot into a byte slice.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes a byte slice produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	return DecodeSnapshot(bytes.NewReader(data))
}

// SaveCheckpoint writes the snapshot to a file.
func SaveCheckpoint(filePath string, s *Snapshot) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create checkpoint file '%s'", filePath)
	}
	if err := EncodeSnapshot(file, s); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "failed to close checkpoint file '%s'", filePath)
}

// LoadCheckpoint reads a snapshot from a file.
func LoadCheckpoint(filePath string) (*Snapshot, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open checkpoint file '%s'", filePath)
	}
	defer file.Close()

	s, err := DecodeSnapshot(file)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint '%s'", filePath)
	}
	return s, nil
}
