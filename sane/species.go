package sane

import (
	"math"
	"sort"
)

// Speciation regroups a flat list of genomes into the species of a
// population for the next generation, enforcing the population size.
type Speciation[G Genome] interface {
	// Speciate partitions genomes into ranked species whose total size is at
	// most size, sets offspring quotas, and returns the genomes that did not fit.
	Speciate(genomes []G, size int) (species []*Species[G], overflow []G)
}

// SingleSpeciation places every genome in one species ranked by the
// selection comparator.
type SingleSpeciation[G Genome] struct {
	Comparator ScoreComparator
}

// Speciate ranks all genomes into a single species, dropping the worst ones beyond size.
func (s SingleSpeciation[G]) Speciate(genomes []G, size int) ([]*Species[G], []G) {
	if len(genomes) == 0 {
		return nil, nil
	}

	ranked := make([]G, len(genomes))
	copy(ranked, genomes)
	sortRanked(ranked, s.Comparator)

	var overflow []G
	if size > 0 && len(ranked) > size {
		overflow = ranked[size:]
		ranked = ranked[:size]
	}

	species := []*Species[G]{{Key: 1, Members: ranked}}
	assignOffspringCounts(species, size)
	return species, overflow
}

// sortRanked orders genomes best first. The sort is stable so ties keep
// their insertion order, which puts carried-over elites ahead of offspring.
func sortRanked[G Genome](genomes []G, cmp ScoreComparator) {
	sort.SliceStable(genomes, func(i, j int) bool {
		return cmp.Compare(genomes[i], genomes[j]) < 0
	})
}

// assignOffspringCounts gives each species a quota proportional to its
// share of the live genomes, rounded so the quotas sum to popSize.
func assignOffspringCounts[G Genome](species []*Species[G], popSize int) {
	sizes := make([]int, len(species))
	for i, s := range species {
		sizes[i] = len(s.Members)
	}
	quotas := computeOffspringQuotas(sizes, popSize)
	for i, s := range species {
		s.OffspringCount = quotas[i]
	}
}

// computeOffspringQuotas distributes popSize over species proportionally to
// their sizes using largest-remainder rounding.
func computeOffspringQuotas(sizes []int, popSize int) []int {
	quotas := make([]int, len(sizes))
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total == 0 || popSize <= 0 {
		return quotas
	}

	type remainder struct {
		idx  int
		frac float64
	}
	remainders := make([]remainder, len(sizes))
	assigned := 0
	for i, s := range sizes {
		exact := float64(s) / float64(total) * float64(popSize)
		quotas[i] = int(math.Floor(exact))
		assigned += quotas[i]
		remainders[i] = remainder{idx: i, frac: exact - float64(quotas[i])}
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac > remainders[j].frac
	})
	for i := 0; assigned < popSize; i = (i + 1) % len(remainders) {
		quotas[remainders[i].idx]++
		assigned++
	}
	return quotas
}
