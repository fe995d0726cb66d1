package retinaface

// FilterCandidates returns, in ascending order, the indices whose score is
// strictly greater than threshold. NaN scores never pass.
func FilterCandidates(scores []float32, threshold float32) []int {
	candidates := make([]int, 0, len(scores)/64)
	for i, score := range scores {
		if score > threshold {
			candidates = append(candidates, i)
		}
	}
	return candidates
}
