package yt

// Block is one discretization patch of the domain: a uniform grid of
// cells between two corners, in code length units. Blocks supplied by a
// BlockSource must not overlap; together they tile the stored region
// exactly once, which is what makes block-wise selection masks a
// partition of any container's membership set.
type Block struct {
	Index     int
	LeftEdge  [3]float64
	RightEdge [3]float64
	Dims      [3]int
	Level     int
}

// NumCells returns the number of cells in the block.
func (b Block) NumCells() int {
	return b.Dims[0] * b.Dims[1] * b.Dims[2]
}

// CellWidth returns the cell width along each axis, in code length.
func (b Block) CellWidth() [3]float64 {
	var w [3]float64
	for ax := 0; ax < 3; ax++ {
		w[ax] = (b.RightEdge[ax] - b.LeftEdge[ax]) / float64(b.Dims[ax])
	}
	return w
}

// CellVolume returns the volume of one cell, in code length cubed.
func (b Block) CellVolume() float64 {
	w := b.CellWidth()
	return w[0] * w[1] * w[2]
}

// CellCenters returns the center of every cell, in code length, in the
// block's storage order (x varies fastest). Field arrays returned by a
// BlockSource use the same order.
func (b Block) CellCenters() [][3]float64 {
	w := b.CellWidth()
	out := make([][3]float64, 0, b.NumCells())
	for k := 0; k < b.Dims[2]; k++ {
		for j := 0; j < b.Dims[1]; j++ {
			for i := 0; i < b.Dims[0]; i++ {
				out = append(out, [3]float64{
					b.LeftEdge[0] + (float64(i)+0.5)*w[0],
					b.LeftEdge[1] + (float64(j)+0.5)*w[1],
					b.LeftEdge[2] + (float64(k)+0.5)*w[2],
				})
			}
		}
	}
	return out
}

// cellIndex returns the storage index of the cell containing p, or -1
// when p lies outside the block. Cells are half-open intervals, except
// that a point sitting exactly on the domain's upper boundary falls into
// the last cell of the block that reaches it; interior block boundaries
// stay half-open, so no point lands in two blocks.
func (b Block) cellIndex(p, domainRight [3]float64) int {
	w := b.CellWidth()
	var idx [3]int
	for ax := 0; ax < 3; ax++ {
		if p[ax] == domainRight[ax] && p[ax] == b.RightEdge[ax] {
			idx[ax] = b.Dims[ax] - 1
			continue
		}
		if p[ax] < b.LeftEdge[ax] || p[ax] >= b.RightEdge[ax] {
			return -1
		}
		idx[ax] = int((p[ax] - b.LeftEdge[ax]) / w[ax])
		if idx[ax] >= b.Dims[ax] {
			idx[ax] = b.Dims[ax] - 1
		}
	}
	return idx[0] + b.Dims[0]*(idx[1]+b.Dims[1]*idx[2])
}

// BlockSource is the data-access interface a frontend wires into a
// Dataset. It is the boundary to the format's low-level reader, which is
// an external collaborator: implementations may read binary outputs,
// serve in-memory arrays (frontends/stream), or anything else.
//
// Implementations must be safe for concurrent readers: the Dataset is
// treated as read-only after load.
type BlockSource interface {
	// Blocks returns the dataset's blocks, in a stable order.
	Blocks() []Block

	// CellField reads the raw per-cell values of a stored field for one
	// block, in block storage order.
	CellField(blockIndex int, name string) ([]float64, error)

	// Particles returns positions (code length) and masses (code mass)
	// of all particles of the given type.
	Particles(ptype string) (pos [][3]float64, mass []float64, err error)
}

// Mask flags which cells of a block belong to a container's selection.
type Mask []bool

// Sum returns the number of selected cells.
func (m Mask) Sum() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}
