package sane

// Species is a fitness-ranked group of genomes with an offspring quota.
type Species[G Genome] struct {
	Key            int // Unique identifier for the species.
	Members        []G // Ordered best to worst under the selection comparator.
	OffspringCount int // Number of genomes this species contributes to the next generation.
}

// Leader returns the best member, or the zero value for an empty species.
func (s *Species[G]) Leader() G {
	var zero G
	if len(s.Members) == 0 {
		return zero
	}
	return s.Members[0]
}

// Population groups the genomes of one kind into species. Neuron and
// blueprint populations are distinct instantiations of this type.
type Population[G Genome] struct {
	Name           string
	PopulationSize int // Upper bound on live genomes across all species.
	Species        []*Species[G]
	Best           G // Best genome recorded by the trainer; may be the zero value.
}

// NewPopulation creates a population holding all members in one species.
func NewPopulation[G Genome](name string, size int, members []G) *Population[G] {
	p := &Population[G]{Name: name, PopulationSize: size}
	if len(members) > 0 {
		p.Species = []*Species[G]{{Key: 1, Members: members, OffspringCount: size}}
	}
	return p
}

// Flatten lists all members species by species. Blueprint slots address
// positions in this list for the neuron population.
func (p *Population[G]) Flatten() []G {
	out := make([]G, 0, p.Size())
	for _, s := range p.Species {
		out = append(out, s.Members...)
	}
	return out
}

// Size returns the number of live genomes.
func (p *Population[G]) Size() int {
	n := 0
	for _, s := range p.Species {
		n += len(s.Members)
	}
	return n
}

// FirstSpeciesEmpty reports whether the population has no usable first species.
func (p *Population[G]) FirstSpeciesEmpty() bool {
	return len(p.Species) == 0 || len(p.Species[0].Members) == 0
}

// PurgeInvalidGenomes drops members failing valid and removes emptied species.
// It returns the number of purged genomes.
func (p *Population[G]) PurgeInvalidGenomes(valid func(G) bool) int {
	purged := 0
	kept := p.Species[:0]
	for _, s := range p.Species {
		members := s.Members[:0]
		for _, g := range s.Members {
			if valid(g) {
				members = append(members, g)
			} else {
				purged++
			}
		}
		s.Members = members
		if len(members) > 0 {
			kept = append(kept, s)
		}
	}
	p.Species = kept
	return purged
}

// MaxBirthGeneration returns the latest birth generation among members.
func (p *Population[G]) MaxBirthGeneration() int {
	m := 0
	for _, s := range p.Species {
		for _, g := range s.Members {
			if b := g.Base().BirthGeneration; b > m {
				m = b
			}
		}
	}
	return m
}

// MaxKey returns the largest genome key among members.
func (p *Population[G]) MaxKey() int {
	m := 0
	for _, s := range p.Species {
		for _, g := range s.Members {
			if k := g.Base().Key; k > m {
				m = k
			}
		}
	}
	return m
}

// contains reports whether g is a member, compared by identity.
func contains[G comparable](list []G, g G) bool {
	for _, x := range list {
		if x == g {
			return true
		}
	}
	return false
}
