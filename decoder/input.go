package decoder

import (
	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/internal/mathutil"
)

// BatchFromDense splits a row-major [batch x maxTime x classes] buffer into
// per-utterance [time][class] matrices. seqLens gives each utterance's valid
// length; a length beyond maxTime is clamped to maxTime and a negative one
// to zero.
func BatchFromDense(data []float32, batch, maxTime, classes int, seqLens []int) ([][][]float64, error) {
	if batch < 0 || maxTime < 0 || classes < 1 {
		return nil, errors.Errorf("bad shape %dx%dx%d", batch, maxTime, classes)
	}
	if len(data) != batch*maxTime*classes {
		return nil, errors.Errorf("buffer holds %d values, shape %dx%dx%d needs %d",
			len(data), batch, maxTime, classes, batch*maxTime*classes)
	}
	if len(seqLens) != batch {
		return nil, errors.Errorf("%d sequence lengths for batch of %d", len(seqLens), batch)
	}

	out := make([][][]float64, batch)
	for b := range out {
		n := min(max(seqLens[b], 0), maxTime)
		m := mathutil.NewMat(n, classes)
		base := b * maxTime * classes
		for t := 0; t < n; t++ {
			row := data[base+t*classes : base+(t+1)*classes]
			for c, v := range row {
				m[t][c] = float64(v)
			}
		}
		out[b] = m
	}
	return out, nil
}
