package epochs

// cube is the owned (n_epochs, n_channels, n_times) buffer of a preloaded
// store. Data is one contiguous float64 slice in epoch-major order;
// per-channel rows are subslice views into it.
type cube struct {
	data []float64
	ne   int
	nc   int
	nt   int
}

func newCube(ne, nc, nt int) *cube {
	return &cube{data: make([]float64, ne*nc*nt), ne: ne, nc: nc, nt: nt}
}

// row returns the time series of (epoch, channel) as a view into the
// owned buffer.
func (c *cube) row(e, ch int) []float64 {
	off := (e*c.nc + ch) * c.nt
	return c.data[off : off+c.nt : off+c.nt]
}

// epoch returns per-channel views of one epoch.
func (c *cube) epoch(e int) [][]float64 {
	rows := make([][]float64, c.nc)
	for ch := range rows {
		rows[ch] = c.row(e, ch)
	}
	return rows
}

// clone returns an independent deep copy.
func (c *cube) clone() *cube {
	out := &cube{data: make([]float64, len(c.data)), ne: c.ne, nc: c.nc, nt: c.nt}
	copy(out.data, c.data)
	return out
}

// keepRows returns a fresh contiguous cube containing only the epochs in
// keep, in the given order. Never a view: dropping must not alias the
// previous buffer.
func (c *cube) keepRows(keep []int) *cube {
	out := newCube(len(keep), c.nc, c.nt)
	for i, e := range keep {
		src := c.data[e*c.nc*c.nt : (e+1)*c.nc*c.nt]
		dst := out.data[i*c.nc*c.nt : (i+1)*c.nc*c.nt]
		copy(dst, src)
	}
	return out
}

// keepChannels returns a fresh cube with only the channels in keep, in
// the given order.
func (c *cube) keepChannels(keep []int) *cube {
	out := newCube(c.ne, len(keep), c.nt)
	for e := 0; e < c.ne; e++ {
		for i, ch := range keep {
			copy(out.row(e, i), c.row(e, ch))
		}
	}
	return out
}

// cropTime returns a fresh cube restricted to time columns [lo, hi]
// inclusive.
func (c *cube) cropTime(lo, hi int) *cube {
	out := newCube(c.ne, c.nc, hi-lo+1)
	for e := 0; e < c.ne; e++ {
		for ch := 0; ch < c.nc; ch++ {
			copy(out.row(e, ch), c.row(e, ch)[lo:hi+1])
		}
	}
	return out
}

// decimTime returns a fresh cube keeping every factor-th column starting
// at offset.
func (c *cube) decimTime(factor, offset int) *cube {
	nt := 0
	for i := offset; i < c.nt; i += factor {
		nt++
	}
	out := newCube(c.ne, c.nc, nt)
	for e := 0; e < c.ne; e++ {
		for ch := 0; ch < c.nc; ch++ {
			src := c.row(e, ch)
			dst := out.row(e, ch)
			for i, j := 0, offset; j < c.nt; i, j = i+1, j+factor {
				dst[i] = src[j]
			}
		}
	}
	return out
}
