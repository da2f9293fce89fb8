package media

import (
	"fmt"
	"math"

	"storyreel/internal/domain"
)

// Allocate splits total seconds across scenes in proportion to narration word count.
// The estimate only looks at text length, not speech timing. The last scene absorbs
// floating-point residue so the durations sum to total.
func Allocate(scenes []domain.Scene, total float64) ([]float64, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return nil, fmt.Errorf("%w: total duration %v", domain.ErrInvalidScript, total)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: no scenes to allocate", domain.ErrInvalidScript)
	}
	words := make([]int, len(scenes))
	sum := 0
	for i, s := range scenes {
		words[i] = s.WordCount()
		sum += words[i]
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: every narration is empty", domain.ErrInvalidScript)
	}
	durations := make([]float64, len(scenes))
	assigned := 0.0
	for i := range scenes {
		if i == len(scenes)-1 {
			durations[i] = math.Max(0, total-assigned)
			break
		}
		durations[i] = float64(words[i]) / float64(sum) * total
		assigned += durations[i]
	}
	return durations, nil
}
