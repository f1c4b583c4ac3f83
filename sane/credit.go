package sane

// resetNeuronFitness clears participation, scores and children of every neuron.
func resetNeuronFitness(neurons []*NeuronGenome) {
	for _, n := range neurons {
		n.ResetFitness()
	}
}

// assignCredit adds each blueprint's score to the neurons it references and
// counts their participation. Slots outside the neuron list are skipped.
func assignCredit(blueprints []*BlueprintGenome, neurons []*NeuronGenome) {
	for _, bp := range blueprints {
		for _, idx := range bp.Slots {
			if idx < 0 || idx >= len(neurons) {
				continue
			}
			neurons[idx].AddScore(bp.Score)
			neurons[idx].IncrementParticipation()
		}
	}
}

// finalizeNeuronFitness turns accumulated scores into per-blueprint averages.
func finalizeNeuronFitness(neurons []*NeuronGenome) {
	for _, n := range neurons {
		n.FinalizeScore()
	}
}

// AssignNeuronFitness runs the whole credit assignment pass: reset, propagate
// blueprint scores, then average by participation.
func AssignNeuronFitness(blueprints []*BlueprintGenome, neurons []*NeuronGenome) {
	resetNeuronFitness(neurons)
	assignCredit(blueprints, neurons)
	finalizeNeuronFitness(neurons)
}
