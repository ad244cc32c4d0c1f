package match

// Pair is a pair of matched indices into the old and new sequences.
type Pair struct {
	Old int
	New int
}

// LCS returns an order-preserving longest common subsequence of a and b as
// index pairs in ascending order. Ties prefer earlier old elements, so the
// result is deterministic.
func LCS[T comparable](a, b []T) []Pair {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	// table[i][j] is the LCS length of a[i:] and b[j:].
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				table[i][j] = table[i+1][j+1] + 1
			case table[i+1][j] >= table[i][j+1]:
				table[i][j] = table[i+1][j]
			default:
				table[i][j] = table[i][j+1]
			}
		}
	}
	pairs := make([]Pair, 0, table[0][0])
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, Pair{Old: i, New: j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}
