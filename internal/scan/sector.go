package scan

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// UnassignedSector marks a hit that belongs to no sector.
const UnassignedSector = -1

// SectorSampler picks one sector per graph and remembers the choice, so every
// trial of a search scores the same sub-region of each graph. It is safe for
// concurrent use; Prefill assigns every graph up front.
type SectorSampler struct {
	mu      sync.Mutex
	sectors [][]int
	rng     *rand.Rand
	chosen  map[int]int
}

// NewSectorSampler creates a sampler over per-hit sector ids. rng must not be
// shared with other goroutines.
func NewSectorSampler(sectors [][]int, rng *rand.Rand) *SectorSampler {
	return &SectorSampler{
		sectors: sectors,
		rng:     rng,
		chosen:  make(map[int]int),
	}
}

// UniformSectors places every hit of every graph in sector 1.
func UniformSectors(sizes []int) [][]int {
	out := make([][]int, len(sizes))
	for i, n := range sizes {
		out[i] = make([]int, n)
		for j := range out[i] {
			out[i][j] = 1
		}
	}
	return out
}

// SectorFor returns the sector chosen for graph, choosing uniformly among the
// graph's distinct sector ids on first use.
func (s *SectorSampler) SectorFor(graph int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sector, ok := s.chosen[graph]; ok {
		return sector, nil
	}
	if graph < 0 || graph >= len(s.sectors) {
		return 0, fmt.Errorf("%w: %d of %d", ErrGraphOutOfRange, graph, len(s.sectors))
	}

	ids := eligibleSectors(s.sectors[graph])
	if len(ids) == 0 {
		return 0, &NoEligibleSectorError{Graph: graph}
	}
	sector := ids[s.rng.Intn(len(ids))]
	s.chosen[graph] = sector
	return sector, nil
}

// eligibleSectors returns the sorted distinct ids other than UnassignedSector.
func eligibleSectors(hits []int) []int {
	seen := make(map[int]struct{})
	for _, id := range hits {
		if id != UnassignedSector {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Mask reports which hits of graph belong to sector.
func (s *SectorSampler) Mask(graph, sector int) []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if graph < 0 || graph >= len(s.sectors) {
		return nil
	}
	hits := s.sectors[graph]
	mask := make([]bool, len(hits))
	for i, id := range hits {
		mask[i] = id == sector
	}
	return mask
}

// Prefill chooses a sector for every graph.
func (s *SectorSampler) Prefill() error {
	for g := range s.sectors {
		if _, err := s.SectorFor(g); err != nil {
			return err
		}
	}
	return nil
}

// Assignments returns a copy of the choices made so far.
func (s *SectorSampler) Assignments() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.chosen))
	for g, sector := range s.chosen {
		out[g] = sector
	}
	return out
}
