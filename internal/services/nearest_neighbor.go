package services

// NearestNeighborOrder builds a visiting order over a travel-time matrix using a
// greedy nearest-neighbor heuristic, starting from index start.
//
// The algorithm minimizes immediate travel duration at each step.
// It does not attempt global route optimization (e.g., TSP solvers).
// The design prioritizes determinism and simplicity over optimality:
// ties go to the first candidate in index order, and +Inf edges are taken
// only when every remaining candidate is unreachable.
//
// The returned permutation always begins with start and visits every index once.
func NearestNeighborOrder(durations [][]float64, start int) []int {
	n := len(durations)
	if n == 0 || start < 0 || start >= n {
		return nil
	}

	visited := make([]bool, n)
	route := make([]int, 0, n)

	current := start
	visited[current] = true
	route = append(route, current)

	for len(route) < n {
		best := -1
		bestDuration := 0.0

		// Select next stop by minimum travel duration (greedy step).
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}

			d := durations[current][candidate]
			// Strict comparison keeps the earliest candidate on ties.
			if best == -1 || d < bestDuration {
				best = candidate
				bestDuration = d
			}
		}

		visited[best] = true
		route = append(route, best)
		current = best
	}

	return route
}
