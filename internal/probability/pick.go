package probability

import "sort"

// prefixSums holds running weight totals; sums[i] = w[0] + ... + w[i].
type prefixSums struct {
	w    []float64
	sums []float64
}

func (p *prefixSums) reset(weights []float64) {
	p.w = append(p.w[:0], weights...)
	if cap(p.sums) < len(weights) {
		p.sums = make([]float64, len(weights))
	}
	p.sums = p.sums[:len(weights)]
	p.rebuild(0)
}

// rebuild recomputes sums from index i onward.
func (p *prefixSums) rebuild(i int) {
	acc := 0.0
	if i > 0 {
		acc = p.sums[i-1]
	}
	for j := i; j < len(p.w); j++ {
		acc += p.w[j]
		p.sums[j] = acc
	}
}

func (p *prefixSums) total() float64 {
	if len(p.sums) == 0 {
		return 0
	}
	return p.sums[len(p.sums)-1]
}

// pick draws one index with probability proportional to its remaining
// weight and removes it from the pool. It returns -1 when nothing is left.
func (p *prefixSums) pick(rng RandomSource) int {
	total := p.total()
	if total <= 0 {
		return -1
	}
	r := rng.Float64() * total
	i := sort.Search(len(p.sums), func(i int) bool { return p.sums[i] > r })
	if i == len(p.sums) {
		// r rounded up to total; take the last item still in the pool.
		for i = len(p.w) - 1; i >= 0 && p.w[i] <= 0; i-- {
		}
		if i < 0 {
			return -1
		}
	}
	p.w[i] = 0
	p.rebuild(i)
	return i
}
