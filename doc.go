// Package sane provides a Go implementation of SANE (Symbiotic, Adaptive
// Neuro-Evolution), a two-population co-evolutionary trainer for neural
// network controllers.
//
// A neuron population evolves candidate hidden units: fixed-length lists of
// labelled, weighted connections to the network's inputs and outputs. A
// blueprint population evolves assemblies of those neurons; each blueprint
// slot points at one neuron. Blueprints are decoded into networks and scored
// by a user supplied Scorer, and every neuron receives the average score of
// the blueprints that used it.
//
// The engine lives in the sane package, a default decoder in sane/nn and
// snapshot and statistics persistence in sane/store.
//
// Basic usage:
//
//	config, err := sane.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	rng := rand.New(rand.NewSource(1))
//	keys := sane.NewKeyGenerator(1)
//	neurons := sane.CreateNeuronPopulation(config, rng, keys)
//	blueprints := sane.CreateBlueprintPopulation(config, rng, neurons.Size(), keys)
//
//	decoder, err := nn.NewDecoder(&config.Network)
//	if err != nil {
//		log.Fatalf("Error creating decoder: %v", err)
//	}
//	trainer, err := sane.NewTrainer(config, blueprints, neurons, myScorer, decoder)
//	if err != nil {
//		log.Fatalf("Error creating trainer: %v", err)
//	}
//	defer trainer.Shutdown()
//
//	for i := 0; i < 100; i++ {
//		if err := trainer.RunGeneration(); err != nil {
//			log.Fatalf("Error running generation: %v", err)
//		}
//	}
//	fmt.Println("Best score:", trainer.BestScore())
package sane
