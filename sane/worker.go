package sane

import (
	"math/rand"

	"github.com/pkg/errors"
)

// unitFunc is one attempt at a unit of reproduction work. full reports that
// the target buffer reached capacity and the worker should stop.
type unitFunc func() (full bool, err error)

// runUnit drives a unit of work with the retry policy shared by both worker
// kinds: operation errors retry the whole unit, anything else is reported.
func (t *Trainer) runUnit(kind string, speciesKey int, attempt unitFunc) {
	defer func() {
		if r := recover(); r != nil {
			t.ReportWorkerError(errors.Errorf("%s worker for species %d panicked: %v", kind, speciesKey, r))
		}
	}()

	failures := 0
	for {
		full, err := attempt()
		if err == nil || full {
			return
		}
		if IsInvariantViolation(err) || !errors.Is(err, ErrOperation) {
			t.ReportWorkerError(err)
			return
		}
		failures++
		if failures >= t.config.Sane.MaxOperationErrors {
			t.ReportWorkerError(errors.Wrapf(ErrOperationsExhausted,
				"%s species %d: %d attempts, last: %v", kind, speciesKey, failures, err))
			return
		}
	}
}

// neuronWorker produces up to two neuron offspring from one species.
type neuronWorker struct {
	trainer *Trainer
	species *Species[*NeuronGenome]
	rng     *rand.Rand
}

func (w *neuronWorker) run() {
	w.trainer.runUnit("neuron", w.species.Key, w.attempt)
}

func (w *neuronWorker) attempt() (bool, error) {
	t := w.trainer
	if t.neuronBufferFull() {
		return true, nil
	}

	p1, p2, err := selectParents(w.rng, t.selection, w.species.Members, t.config.Sane.MaxTries)
	if err != nil {
		return false, err
	}
	children, err := t.operators.NeuronCrossover.Perform(w.rng, p1, p2, t.keys.Next)
	if err != nil {
		return false, err
	}

	// Nothing is appended until the whole attempt has succeeded.
	var valid []*NeuronGenome
	for _, child := range children {
		if err := t.operators.NeuronMutate.Perform(w.rng, child); err != nil {
			return false, err
		}
		child.BirthGeneration = t.generation + 1
		t.neuronRules.Rewrite(child)
		if t.neuronRules.IsValid(child) {
			valid = append(valid, child)
		}
	}
	if len(valid) == 0 {
		return false, operationErrorf("neuron species %d produced no valid offspring", w.species.Key)
	}

	for _, child := range valid {
		added, err := t.addNeuronChild(child, p1, p2)
		if err != nil {
			return false, err
		}
		if !added {
			return true, nil
		}
	}
	return false, nil
}

// blueprintWorker produces and scores up to two blueprint offspring from one species.
type blueprintWorker struct {
	trainer *Trainer
	species *Species[*BlueprintGenome]
	rng     *rand.Rand
}

func (w *blueprintWorker) run() {
	w.trainer.runUnit("blueprint", w.species.Key, w.attempt)
}

func (w *blueprintWorker) attempt() (bool, error) {
	t := w.trainer
	if t.blueprintBufferFull() {
		return true, nil
	}

	p1, p2, err := selectParents(w.rng, t.selection, w.species.Members, t.config.Sane.MaxTries)
	if err != nil {
		return false, err
	}
	children, err := t.operators.BlueprintCrossover.Perform(w.rng, p1, p2, t.keys.Next)
	if err != nil {
		return false, err
	}

	// Children are scored before any of them is appended so that a retried
	// attempt never leaves part of its output behind.
	var valid []*BlueprintGenome
	for _, child := range children {
		if err := t.operators.BlueprintMutateRandom.Perform(w.rng, t.genePoolSize, child); err != nil {
			return false, err
		}
		if err := t.operators.BlueprintMutateOffspring.Perform(w.rng, [2]*BlueprintGenome{p1, p2}, child); err != nil {
			return false, err
		}
		child.BirthGeneration = t.generation + 1
		t.blueprintRules.Rewrite(child)
		if !t.isValidBlueprint(child) {
			continue
		}
		score, err := t.evaluate(child)
		if err != nil {
			return false, errors.Wrapf(err, "scoring blueprint %d", child.Key)
		}
		child.SetScore(score)
		valid = append(valid, child)
	}
	if len(valid) == 0 {
		return false, operationErrorf("blueprint species %d produced no valid offspring", w.species.Key)
	}

	for _, child := range valid {
		added, err := t.addBlueprintChild(child)
		if err != nil {
			return false, err
		}
		if !added {
			return true, nil
		}
	}
	return false, nil
}
