package sane

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Trainer runs symbiotic co-evolution of a neuron population and a
// blueprint population. Blueprints are scored by decoding them into a
// phenotype; neurons inherit the average score of the blueprints that used them.
type Trainer struct {
	config    *Config
	logger    *slog.Logger
	scorer    Scorer
	decoder   Decoder
	randoms   RandomFactory
	selection Selection
	operators Operators
	keys      *KeyGenerator

	neuronSpeciation    Speciation[*NeuronGenome]
	blueprintSpeciation Speciation[*BlueprintGenome]
	neuronRules         RuleSet[*NeuronGenome]
	blueprintRules      RuleSet[*BlueprintGenome]

	bestComparator      ScoreComparator
	selectionComparator ScoreComparator

	neurons    *Population[*NeuronGenome]
	blueprints *Population[*BlueprintGenome]
	generation int

	// geneNeurons is the neuron list blueprint slots address. It only
	// changes between reproduction rounds.
	geneNeurons  []*NeuronGenome
	genePoolSize int

	pool         *workerPool
	threads      int
	bootstrapped bool
	closed       bool
	fatal        error

	neuronMu     sync.Mutex
	neuronBuffer []*NeuronGenome
	neuronLimit  int

	blueprintMu     sync.Mutex
	blueprintBuffer []*BlueprintGenome
	blueprintLimit  int
	best            *BlueprintGenome
	bestNeurons     []*NeuronGenome // the neurons best was scored with, in slot order
	oldBest         *BlueprintGenome

	errMu     sync.Mutex
	workerErr error

	lastStats *GenerationStats
}

// Option customises a Trainer.
type Option func(*Trainer)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) { t.logger = logger }
}

// WithRandomFactory sets the source of per-worker random generators.
func WithRandomFactory(f RandomFactory) Option {
	return func(t *Trainer) { t.randoms = f }
}

// WithSelection replaces the configured parent selection strategy.
func WithSelection(s Selection) Option {
	return func(t *Trainer) { t.selection = s }
}

// WithSpeciation replaces the speciation strategies of both populations.
func WithSpeciation(neurons Speciation[*NeuronGenome], blueprints Speciation[*BlueprintGenome]) Option {
	return func(t *Trainer) {
		t.neuronSpeciation = neurons
		t.blueprintSpeciation = blueprints
	}
}

// WithNeuronRules replaces the neuron rule set.
func WithNeuronRules(rules RuleSet[*NeuronGenome]) Option {
	return func(t *Trainer) { t.neuronRules = rules }
}

// WithBlueprintRules replaces the blueprint rule set. Slots outside the
// neuron population are rejected regardless of the rule set.
func WithBlueprintRules(rules RuleSet[*BlueprintGenome]) Option {
	return func(t *Trainer) { t.blueprintRules = rules }
}

// WithOperators replaces the genetic operators.
func WithOperators(ops Operators) Option {
	return func(t *Trainer) { t.operators = ops }
}

// NewTrainer binds both populations to a scorer and a decoder. The score
// polarity comes from the scorer. It fails if either population has no
// first species to work with.
func NewTrainer(config *Config, blueprints *Population[*BlueprintGenome], neurons *Population[*NeuronGenome],
	scorer Scorer, decoder Decoder, opts ...Option) (*Trainer, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil || decoder == nil {
		return nil, errors.New("scorer and decoder are required")
	}
	if blueprints == nil || blueprints.FirstSpeciesEmpty() {
		return nil, invariantErrorf("blueprint population has no members")
	}
	if neurons == nil || neurons.FirstSpeciesEmpty() {
		return nil, invariantErrorf("neuron population has no members")
	}

	selection, err := NewSelection(&config.Selection)
	if err != nil {
		return nil, err
	}

	minimize := scorer.ShouldMinimize()
	t := &Trainer{
		config:              config,
		logger:              slog.Default(),
		scorer:              scorer,
		decoder:             decoder,
		selection:           selection,
		operators:           NewOperators(config),
		bestComparator:      NewBestComparator(minimize),
		selectionComparator: NewSelectionComparator(minimize),
		neurons:             neurons,
		blueprints:          blueprints,
		generation:          max(neurons.MaxBirthGeneration(), blueprints.MaxBirthGeneration()),
		keys:                NewKeyGenerator(max(neurons.MaxKey(), blueprints.MaxKey()) + 1),
		best:                blueprints.Species[0].Members[0],
	}
	t.neuronSpeciation = SingleSpeciation[*NeuronGenome]{Comparator: t.selectionComparator}
	t.blueprintSpeciation = SingleSpeciation[*BlueprintGenome]{Comparator: t.selectionComparator}
	t.neuronRules = NewNeuronRules(&config.Network)
	t.blueprintRules = NewBlueprintRules(&config.Network, func() int { return len(t.geneNeurons) })
	if config.Sane.Seed != 0 {
		t.randoms = NewSeededRandomFactory(config.Sane.Seed)
	} else {
		t.randoms = NewRandomFactory()
	}

	for _, opt := range opts {
		opt(t)
	}
	t.setGenePool(neurons)
	t.bestNeurons = t.assembly(t.best)
	return t, nil
}

// RunGeneration advances training by exactly one generation. The new
// populations are committed only when the whole generation succeeds; on
// error both populations and the best genome are left as they were. It is
// not safe for concurrent use.
func (t *Trainer) RunGeneration() error {
	if t.closed {
		return ErrTrainerClosed
	}
	if t.fatal != nil {
		return t.fatal
	}
	start := time.Now()

	if !t.bootstrapped {
		if err := t.bootstrap(); err != nil {
			return t.abort(err)
		}
		t.bootstrapped = true
	}
	if len(t.blueprints.Species) == 0 {
		return t.abort(invariantErrorf("blueprint population is empty, there are no species"))
	}
	if len(t.neurons.Species) == 0 {
		return t.abort(invariantErrorf("neuron population is empty, there are no species"))
	}

	prevBest, prevBestNeurons := t.best, t.bestNeurons
	t.clearWorkerError()

	AssignNeuronFitness(t.blueprints.Flatten(), t.geneNeurons)

	t.runNeuronRound()
	if err := t.takeWorkerError(); err != nil {
		return t.abort(err)
	}

	neuronSpecies, overflow := t.neuronSpeciation.Speciate(t.neuronBuffer, t.neurons.PopulationSize)
	stagedNeurons := &Population[*NeuronGenome]{
		Name:           t.neurons.Name,
		PopulationSize: t.neurons.PopulationSize,
		Species:        neuronSpecies,
	}
	purgedNeurons := stagedNeurons.PurgeInvalidGenomes(t.isLiveNeuron)
	if stagedNeurons.FirstSpeciesEmpty() {
		return t.abort(invariantErrorf("neuron re-speciation left no species"))
	}
	t.logger.Debug("neurons re-speciated",
		"generation", t.generation+1,
		"size", stagedNeurons.Size(),
		"overflow", len(overflow),
		"purged", purgedNeurons)

	committedNeurons, committedPool := t.neurons, t.geneNeurons
	t.setGenePool(stagedNeurons)
	restoreSlots := relinkBlueprints(t.carriedBlueprints(), committedPool, t.geneNeurons)
	rollback := func() {
		restoreSlots()
		t.setGenePool(committedNeurons)
		t.blueprintMu.Lock()
		t.best, t.bestNeurons = prevBest, prevBestNeurons
		t.blueprintMu.Unlock()
	}

	oldBest := t.runBlueprintRound()
	if err := t.takeWorkerError(); err != nil {
		rollback()
		return t.abort(err)
	}

	if t.config.Sane.ValidationMode {
		if err := t.checkGenerationInvariants(oldBest); err != nil {
			rollback()
			return t.abort(err)
		}
	}

	blueprintSpecies, bpOverflow := t.blueprintSpeciation.Speciate(t.blueprintBuffer, t.blueprints.PopulationSize)
	stagedBlueprints := &Population[*BlueprintGenome]{
		Name:           t.blueprints.Name,
		PopulationSize: t.blueprints.PopulationSize,
		Species:        blueprintSpecies,
	}
	purgedBlueprints := stagedBlueprints.PurgeInvalidGenomes(t.isLiveBlueprint)

	t.neurons.Species = stagedNeurons.Species
	t.neurons.Best = stagedNeurons.Species[0].Leader()
	t.blueprints.Species = stagedBlueprints.Species
	t.blueprints.Best = t.BestGenome()
	t.generation++

	stats := computeGenerationStats(t.generation, t.blueprints.Flatten(), t.geneNeurons, t.BestScore(), time.Since(start))
	t.lastStats = &stats
	t.logger.Info("generation complete",
		"generation", t.generation,
		"best", stats.BestScore,
		"mean", stats.BlueprintMean,
		"blueprints", stats.BlueprintCount,
		"neurons", stats.NeuronCount,
		"overflow", len(bpOverflow),
		"purged", purgedBlueprints,
		"duration", stats.Duration)
	return nil
}

// bootstrap starts the pool, scores every blueprint once, picks the first
// best and speciates both populations. It is repeated on the next call to
// RunGeneration until it succeeds.
func (t *Trainer) bootstrap() error {
	if t.pool == nil {
		t.threads = t.config.Sane.ThreadCount
		if t.threads <= 0 {
			t.threads = runtime.NumCPU()
		}
		t.pool = newWorkerPool(t.threads)
	}
	t.logger.Info("starting trainer",
		"threads", t.threads,
		"generation", t.generation,
		"blueprints", t.blueprints.Size(),
		"neurons", t.neurons.Size(),
		"minimize", t.bestComparator.ShouldMinimize())

	before := t.neurons.Flatten()
	neuronSpecies, _ := t.neuronSpeciation.Speciate(before, t.neurons.PopulationSize)
	t.neurons.Species = neuronSpecies
	t.neurons.PurgeInvalidGenomes(t.isLiveNeuron)
	if t.neurons.FirstSpeciesEmpty() {
		return invariantErrorf("neuron population has no valid members")
	}
	t.setGenePool(t.neurons)
	relinkBlueprints(t.carriedBlueprints(), before, t.geneNeurons)

	t.clearWorkerError()
	all := t.blueprints.Flatten()
	if len(all) == 0 {
		return invariantErrorf("blueprint population has no members")
	}
	tasks := make([]func(), 0, len(all))
	for _, bp := range all {
		bp := bp
		tasks = append(tasks, func() {
			t.runUnit("bootstrap", bp.Key, func() (bool, error) {
				score, err := t.calculateScore(bp)
				if err != nil {
					return false, errors.Wrapf(err, "scoring blueprint %d", bp.Key)
				}
				bp.SetScore(score)
				return false, nil
			})
		})
	}
	t.pool.invokeAll(tasks)
	if err := t.takeWorkerError(); err != nil {
		return err
	}

	// The provisional best was never scored against this gene pool.
	var best *BlueprintGenome
	for _, bp := range all {
		if !isUsableScore(bp.Score) {
			continue
		}
		if best == nil || t.bestComparator.IsBetterThan(bp, best) {
			best = bp
		}
	}
	if best == nil {
		best = all[0]
	}
	t.best, t.bestNeurons = best, t.assembly(best)
	t.blueprints.Best = t.best

	blueprintSpecies, _ := t.blueprintSpeciation.Speciate(all, t.blueprints.PopulationSize)
	t.blueprints.Species = blueprintSpecies
	purged := t.blueprints.PurgeInvalidGenomes(t.isLiveBlueprint)
	t.logger.Debug("bootstrap complete", "best", t.best.Score, "purged", purged)
	return nil
}

// runNeuronRound fills the neuron buffer with elites and offspring of the
// current neuron species.
func (t *Trainer) runNeuronRound() {
	t.neuronMu.Lock()
	t.neuronBuffer = make([]*NeuronGenome, 0, t.neurons.PopulationSize)
	t.neuronLimit = t.neurons.PopulationSize
	t.neuronMu.Unlock()

	var tasks []func()
	for _, s := range t.neurons.Species {
		ranked := &Species[*NeuronGenome]{Key: s.Key, Members: append([]*NeuronGenome(nil), s.Members...), OffspringCount: s.OffspringCount}
		sortRanked(ranked.Members, t.selectionComparator)

		plan := planReproduction(len(ranked.Members), ranked.OffspringCount, t.config.Sane.EliteRate)
		for i := 0; i < plan.Elites; i++ {
			added, err := t.addNeuronChild(ranked.Members[i])
			if err != nil {
				t.ReportWorkerError(err)
				break
			}
			if !added {
				break
			}
		}
		for i := 0; i < plan.Units; i++ {
			w := &neuronWorker{trainer: t, species: ranked, rng: t.randoms.Factor()}
			tasks = append(tasks, w.run)
		}
		t.logger.Debug("neuron round", "species", s.Key, "quota", s.OffspringCount, "elites", plan.Elites, "units", plan.Units)
	}
	t.pool.invokeAll(tasks)
}

// runBlueprintRound seeds the blueprint buffer with the current best, adds
// elites and dispatches the blueprint workers. It returns the seeded genome.
func (t *Trainer) runBlueprintRound() *BlueprintGenome {
	t.blueprintMu.Lock()
	t.blueprintBuffer = make([]*BlueprintGenome, 0, t.blueprints.PopulationSize)
	t.blueprintLimit = t.blueprints.PopulationSize
	t.blueprintBuffer = append(t.blueprintBuffer, t.best)
	t.oldBest = t.best
	oldBest := t.oldBest
	t.blueprintMu.Unlock()

	var tasks []func()
	for _, s := range t.blueprints.Species {
		plan := planReproduction(len(s.Members), s.OffspringCount, t.config.Sane.EliteRate)
		// Members whose neurons did not survive the neuron round cannot be elites.
		taken := 0
		for i := 0; i < len(s.Members) && taken < plan.Elites; i++ {
			elite := s.Members[i]
			if elite == oldBest {
				taken++
				continue
			}
			if !t.isValidBlueprint(elite) {
				continue
			}
			added, err := t.addBlueprintChild(elite)
			if err != nil {
				t.ReportWorkerError(err)
				break
			}
			if !added {
				break
			}
			taken++
		}
		for i := 0; i < plan.Units; i++ {
			w := &blueprintWorker{trainer: t, species: s, rng: t.randoms.Factor()}
			tasks = append(tasks, w.run)
		}
		t.logger.Debug("blueprint round", "species", s.Key, "quota", s.OffspringCount, "elites", plan.Elites, "units", plan.Units)
	}
	t.pool.invokeAll(tasks)
	return oldBest
}

// checkGenerationInvariants verifies that the seeded best survived and that
// the best score did not regress.
func (t *Trainer) checkGenerationInvariants(oldBest *BlueprintGenome) error {
	t.blueprintMu.Lock()
	defer t.blueprintMu.Unlock()
	if oldBest == nil {
		return nil
	}
	if !contains(t.blueprintBuffer, oldBest) {
		return invariantErrorf("the top genome %d died", oldBest.Key)
	}
	if t.best != nil && t.bestComparator.IsBetterThan(oldBest, t.best) {
		return invariantErrorf("the best genome's score got worse: went from %v to %v", oldBest.Score, t.best.Score)
	}
	return nil
}

// addNeuronChild appends a genome to the neuron buffer if there is room and
// records it as a child of its parents. It reports false when the buffer is full.
func (t *Trainer) addNeuronChild(child *NeuronGenome, parents ...*NeuronGenome) (bool, error) {
	t.neuronMu.Lock()
	defer t.neuronMu.Unlock()
	if len(t.neuronBuffer) >= t.neuronLimit {
		return false, nil
	}
	if t.config.Sane.ValidationMode && contains(t.neuronBuffer, child) {
		return false, invariantErrorf("neuron %d already added to population", child.Key)
	}
	t.neuronBuffer = append(t.neuronBuffer, child)
	for _, p := range parents {
		p.Children = append(p.Children, child.Key)
	}
	return true, nil
}

// addBlueprintChild appends a genome to the blueprint buffer if there is
// room and promotes it to best when it strictly improves on the current best.
func (t *Trainer) addBlueprintChild(child *BlueprintGenome) (bool, error) {
	t.blueprintMu.Lock()
	defer t.blueprintMu.Unlock()
	if len(t.blueprintBuffer) >= t.blueprintLimit {
		return false, nil
	}
	// The seeded best is already in the buffer.
	if child != t.oldBest {
		if t.config.Sane.ValidationMode && contains(t.blueprintBuffer, child) {
			return false, invariantErrorf("blueprint %d already added to population", child.Key)
		}
		t.blueprintBuffer = append(t.blueprintBuffer, child)
	}
	if isUsableScore(child.Score) && (t.best == nil || t.bestComparator.IsBetterThan(child, t.best)) {
		t.best = child
		t.bestNeurons = t.assembly(child)
	}
	return true, nil
}

func (t *Trainer) neuronBufferFull() bool {
	t.neuronMu.Lock()
	defer t.neuronMu.Unlock()
	return len(t.neuronBuffer) >= t.neuronLimit
}

func (t *Trainer) blueprintBufferFull() bool {
	t.blueprintMu.Lock()
	defer t.blueprintMu.Unlock()
	return len(t.blueprintBuffer) >= t.blueprintLimit
}

// calculateScore repairs a blueprint, then scores it. Invalid blueprints get
// the worst score without reaching the scorer.
func (t *Trainer) calculateScore(bp *BlueprintGenome) (float64, error) {
	t.blueprintRules.Rewrite(bp)
	if !t.isValidBlueprint(bp) {
		return t.bestComparator.WorstScore(), nil
	}
	return t.evaluate(bp)
}

// evaluate decodes a valid blueprint and scores the phenotype. A decode
// failure yields the worst score.
func (t *Trainer) evaluate(bp *BlueprintGenome) (float64, error) {
	phenotype, err := t.decoder.Decode(bp, t.geneNeurons)
	if err != nil || phenotype == nil {
		return t.bestComparator.WorstScore(), nil
	}
	if c, ok := phenotype.(ContextClearer); ok {
		c.ClearContext()
	}
	return t.scorer.Score(phenotype)
}

func (t *Trainer) isValidBlueprint(bp *BlueprintGenome) bool {
	return bp.References(len(t.geneNeurons)) && t.blueprintRules.IsValid(bp)
}

func (t *Trainer) isLiveBlueprint(bp *BlueprintGenome) bool {
	return isUsableScore(bp.Score) && isUsableScore(bp.AdjustedScore) && t.isValidBlueprint(bp)
}

func (t *Trainer) isLiveNeuron(n *NeuronGenome) bool {
	return isUsableScore(n.Score) && isUsableScore(n.AdjustedScore) && t.neuronRules.IsValid(n)
}

// assembly resolves the slots of bp against the gene pool. It returns nil
// when a slot addresses no live neuron.
func (t *Trainer) assembly(bp *BlueprintGenome) []*NeuronGenome {
	if bp == nil || !bp.References(len(t.geneNeurons)) {
		return nil
	}
	out := make([]*NeuronGenome, len(bp.Slots))
	for i, idx := range bp.Slots {
		out[i] = t.geneNeurons[idx]
	}
	return out
}

// carriedBlueprints lists the committed blueprints and the best genome.
func (t *Trainer) carriedBlueprints() []*BlueprintGenome {
	carried := t.blueprints.Flatten()
	if t.best != nil && !contains(carried, t.best) {
		carried = append(carried, t.best)
	}
	return carried
}

// relinkBlueprints moves the slots of blueprints from positions in from to
// the positions the same neurons hold in to. A slot whose neuron is not in
// to becomes -1, which makes the blueprint invalid. The returned function
// restores the previous slots.
func relinkBlueprints(blueprints []*BlueprintGenome, from, to []*NeuronGenome) func() {
	position := make(map[*NeuronGenome]int, len(to))
	for i, n := range to {
		position[n] = i
	}
	saved := make(map[*BlueprintGenome][]int, len(blueprints))
	for _, bp := range blueprints {
		if _, done := saved[bp]; done {
			continue
		}
		saved[bp] = append([]int(nil), bp.Slots...)
		for i, idx := range bp.Slots {
			bp.Slots[i] = -1
			if idx < 0 || idx >= len(from) {
				continue
			}
			if p, ok := position[from[idx]]; ok {
				bp.Slots[i] = p
			}
		}
	}
	return func() {
		for bp, slots := range saved {
			copy(bp.Slots, slots)
		}
	}
}

// setGenePool points blueprint slots and mutation at the given neuron population.
func (t *Trainer) setGenePool(neurons *Population[*NeuronGenome]) {
	t.geneNeurons = neurons.Flatten()
	t.genePoolSize = 0
	if !neurons.FirstSpeciesEmpty() {
		t.genePoolSize = len(neurons.Species[0].Members)
	}
}

// ReportWorkerError records the first error reported during a generation.
// Later errors are logged and dropped, except that an invariant violation
// always replaces an ordinary error.
func (t *Trainer) ReportWorkerError(err error) {
	if err == nil {
		return
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.workerErr == nil || (IsInvariantViolation(err) && !IsInvariantViolation(t.workerErr)) {
		t.workerErr = err
		return
	}
	t.logger.Warn("dropping worker error", "error", err)
}

func (t *Trainer) clearWorkerError() {
	t.errMu.Lock()
	t.workerErr = nil
	t.errMu.Unlock()
}

// takeWorkerError returns the error that must abort the generation, if any.
func (t *Trainer) takeWorkerError() error {
	t.errMu.Lock()
	err := t.workerErr
	t.workerErr = nil
	t.errMu.Unlock()
	if err == nil {
		return nil
	}
	if t.config.Sane.IgnoreExceptions && !IsInvariantViolation(err) {
		t.logger.Warn("ignoring worker error", "generation", t.generation+1, "error", err)
		return nil
	}
	return err
}

// abort returns err and poisons the trainer if it is an invariant violation.
func (t *Trainer) abort(err error) error {
	if IsInvariantViolation(err) {
		t.fatal = err
		t.logger.Error("training aborted", "generation", t.generation+1, "error", err)
	} else {
		t.logger.Warn("generation failed", "generation", t.generation+1, "error", err)
	}
	return err
}

// Shutdown stops the worker pool after in-flight work finishes. It is safe
// to call more than once.
func (t *Trainer) Shutdown() {
	t.closed = true
	if t.pool != nil {
		t.pool.shutdown()
	}
}

// BestNeurons returns the neurons the best blueprint was scored with, in
// slot order. They may no longer be members of the neuron population.
func (t *Trainer) BestNeurons() []*NeuronGenome {
	t.blueprintMu.Lock()
	defer t.blueprintMu.Unlock()
	return t.bestNeurons
}

// BestGenome returns the best blueprint seen so far.
func (t *Trainer) BestGenome() *BlueprintGenome {
	t.blueprintMu.Lock()
	defer t.blueprintMu.Unlock()
	return t.best
}

// BestScore returns the best blueprint's score, or the worst possible score
// when no usable best exists yet.
func (t *Trainer) BestScore() float64 {
	best := t.BestGenome()
	if best == nil || !isUsableScore(best.Score) {
		return t.bestComparator.WorstScore()
	}
	return best.Score
}

// Generation returns the number of the last completed generation.
func (t *Trainer) Generation() int {
	return t.generation
}

// NeuronPopulation returns the committed neuron population.
func (t *Trainer) NeuronPopulation() *Population[*NeuronGenome] {
	return t.neurons
}

// BlueprintPopulation returns the committed blueprint population.
func (t *Trainer) BlueprintPopulation() *Population[*BlueprintGenome] {
	return t.blueprints
}

// GeneNeurons returns the neuron list the committed blueprints address.
func (t *Trainer) GeneNeurons() []*NeuronGenome {
	return t.geneNeurons
}

// LastStats returns the statistics of the last completed generation, or nil.
func (t *Trainer) LastStats() *GenerationStats {
	if t.lastStats == nil {
		return nil
	}
	s := *t.lastStats
	return &s
}
