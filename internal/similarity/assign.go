package similarity

import "sort"

// assignExact returns the maximum total weight of a one-to-one assignment of
// rows to columns. Hungarian algorithm with potentials, O(n^2*m); weights are
// negated into costs so the shorter side is fully assigned at minimum cost,
// which maximizes the total weight for non-negative weights.
func assignExact(w [][]float64) float64 {
	n := len(w)
	if n == 0 || len(w[0]) == 0 {
		return 0
	}
	m := len(w[0])

	// Rows must not outnumber columns; transpose if they do. The optimal
	// value is unchanged.
	if n > m {
		t := make([][]float64, m)
		for j := range t {
			t[j] = make([]float64, n)
			for i := 0; i < n; i++ {
				t[j][i] = w[i][j]
			}
		}
		w = t
		n, m = m, n
	}

	var maxW float64
	for i := range w {
		for _, v := range w[i] {
			if v > maxW {
				maxW = v
			}
		}
	}
	cost := func(i, j int) float64 { return maxW - w[i][j] }

	const inf = 1e18
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)   // p[j] = row assigned to column j, 1-based
	way := make([]int, m+1) // alternating path back-pointers

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	var total float64
	for j := 1; j <= m; j++ {
		if p[j] > 0 {
			total += w[p[j]-1][j-1]
		}
	}
	return total
}

// assignGreedy approximates the assignment: candidate pairs sorted by weight
// descending are taken in order when both endpoints are still free. Ties
// break toward the earlier block pair, keeping the result deterministic.
func assignGreedy(w [][]float64) float64 {
	n := len(w)
	if n == 0 || len(w[0]) == 0 {
		return 0
	}
	m := len(w[0])

	type pair struct {
		i, j int
		w    float64
	}
	pairs := make([]pair, 0, n*m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if w[i][j] > 0 {
				pairs = append(pairs, pair{i, j, w[i][j]})
			}
		}
	}
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].w != pairs[y].w {
			return pairs[x].w > pairs[y].w
		}
		if pairs[x].i != pairs[y].i {
			return pairs[x].i < pairs[y].i
		}
		return pairs[x].j < pairs[y].j
	})

	rowUsed := make([]bool, n)
	colUsed := make([]bool, m)
	var total float64
	for _, p := range pairs {
		if rowUsed[p.i] || colUsed[p.j] {
			continue
		}
		rowUsed[p.i] = true
		colUsed[p.j] = true
		total += p.w
	}
	return total
}
