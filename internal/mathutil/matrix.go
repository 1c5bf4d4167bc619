package mathutil

// Mat is a 2D float64 matrix stored as row-major [][]float64.
// A probability sequence is a Mat with one row per timestep.
type Mat = [][]float64

// NewMat creates a rows x cols matrix initialized to zero.
// All rows share one backing array.
func NewMat(rows, cols int) Mat {
	m := make(Mat, rows)
	data := make([]float64, rows*cols)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// SliceRows returns rows [from, to) of m, clamped to the matrix extent.
// The result shares storage with m.
func SliceRows(m Mat, from, to int) Mat {
	if from < 0 {
		from = 0
	}
	if to > len(m) {
		to = len(m)
	}
	if from >= to {
		return Mat{}
	}
	return m[from:to]
}
