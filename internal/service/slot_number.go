package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"parking-backend/internal/repository"
)

const (
	// DefaultSlotPrefix is used when single-slot creation auto-generates a number.
	DefaultSlotPrefix = "SLOT"

	maxGenerateAttempts = 10
)

// SlotNumberGenerator produces unique slot numbers. Single creation draws a
// random 3-digit number and checks the store, retrying on collision; bulk
// creation walks a deterministic sequence against a one-time snapshot of the
// numbers already taken under the prefix. The two strategies are intentionally
// different: bulk callers want predictable, inspectable numbering while single
// creation favors unpredictability.
type SlotNumberGenerator struct {
	slots repository.SlotRepository
}

func NewSlotNumberGenerator(slots repository.SlotRepository) *SlotNumberGenerator {
	return &SlotNumberGenerator{slots: slots}
}

// GenerateUnique returns a free `<prefix>-<3-digit-random>` number, retrying
// up to maxGenerateAttempts times before giving up with ErrGenerationExhausted.
func (g *SlotNumberGenerator) GenerateUnique(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultSlotPrefix
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate := fmt.Sprintf("%s-%d", prefix, 100+rand.IntN(900))

		exists, err := g.slots.ExistsBySlotNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slot number %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", ErrGenerationExhausted
}

// Sequence snapshots the numbers already taken under prefix and returns a
// NumberSequence for bulk creation. The snapshot is taken once; concurrent
// writers are handled by redrawing on insert-time unique violations, not by
// re-querying per candidate.
func (g *SlotNumberGenerator) Sequence(ctx context.Context, prefix string) (*NumberSequence, error) {
	existing, err := g.slots.NumbersByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot slot numbers for prefix %s: %w", prefix, err)
	}

	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}

	return &NumberSequence{prefix: prefix, taken: taken}, nil
}

// NumberSequence hands out `<prefix>-<zero-padded sequence>` numbers starting
// from 1, skipping any number in the snapshot or already handed out. The
// sequence has no upper bound, so a densely populated prefix only slows it
// down rather than failing it.
type NumberSequence struct {
	prefix string
	taken  map[string]struct{}
	seq    int
}

// Next returns the next unused number and marks it taken.
func (s *NumberSequence) Next() string {
	for {
		s.seq++
		candidate := fmt.Sprintf("%s-%05d", s.prefix, s.seq)
		if _, ok := s.taken[candidate]; ok {
			continue
		}
		s.taken[candidate] = struct{}{}
		return candidate
	}
}

// Take returns the next count unused numbers.
func (s *NumberSequence) Take(count int) []string {
	numbers := make([]string, 0, count)
	for len(numbers) < count {
		numbers = append(numbers, s.Next())
	}
	return numbers
}
