package sane

// RuleSet repairs and gates genomes before they are accepted as offspring.
type RuleSet[G Genome] interface {
	Rewrite(g G)
	IsValid(g G) bool
}

// RewriteRule repairs a genome in place.
type RewriteRule[G Genome] func(g G)

// ConstraintRule reports whether a genome is acceptable.
type ConstraintRule[G Genome] func(g G) bool

// RuleHolder applies rewrite rules in order, then requires every constraint to pass.
type RuleHolder[G Genome] struct {
	rewrites    []RewriteRule[G]
	constraints []ConstraintRule[G]
}

// NewRuleHolder creates an empty rule holder; every genome is valid.
func NewRuleHolder[G Genome]() *RuleHolder[G] {
	return &RuleHolder[G]{}
}

// AddRewriteRule appends a repair step.
func (r *RuleHolder[G]) AddRewriteRule(rule RewriteRule[G]) {
	r.rewrites = append(r.rewrites, rule)
}

// AddConstraintRule appends a validity check.
func (r *RuleHolder[G]) AddConstraintRule(rule ConstraintRule[G]) {
	r.constraints = append(r.constraints, rule)
}

func (r *RuleHolder[G]) Rewrite(g G) {
	for _, rule := range r.rewrites {
		rule(g)
	}
}

func (r *RuleHolder[G]) IsValid(g G) bool {
	for _, rule := range r.constraints {
		if !rule(g) {
			return false
		}
	}
	return true
}

// NewNeuronRules checks chromosome length, label range, label uniqueness and
// weight finiteness.
func NewNeuronRules(network *NetworkConfig) *RuleHolder[*NeuronGenome] {
	length := network.ChromosomeLength()
	ioCount := network.IOCount()
	rules := NewRuleHolder[*NeuronGenome]()
	rules.AddConstraintRule(func(n *NeuronGenome) bool {
		if len(n.Connections) != length {
			return false
		}
		seen := make(map[int]struct{}, length)
		for _, c := range n.Connections {
			if c.Label < 0 || c.Label >= ioCount || !c.IsFinite() {
				return false
			}
			if _, dup := seen[c.Label]; dup {
				return false
			}
			seen[c.Label] = struct{}{}
		}
		return true
	})
	return rules
}

// NewBlueprintRules checks the slot count and that every slot addresses a
// live neuron. neuronCount is read at validation time because the neuron
// population changes between rounds.
func NewBlueprintRules(network *NetworkConfig, neuronCount func() int) *RuleHolder[*BlueprintGenome] {
	hidden := network.NumHidden
	rules := NewRuleHolder[*BlueprintGenome]()
	rules.AddConstraintRule(func(b *BlueprintGenome) bool {
		return len(b.Slots) == hidden && b.References(neuronCount())
	})
	return rules
}
