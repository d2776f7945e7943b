package geohash

import "sort"

// Direction names a compass step on the cell grid.
type Direction string

const (
	North     Direction = "n"
	NorthEast Direction = "ne"
	East      Direction = "e"
	SouthEast Direction = "se"
	South     Direction = "s"
	SouthWest Direction = "sw"
	West      Direction = "w"
	NorthWest Direction = "nw"
)

var directionDelta = map[Direction][2]int{
	North:     {0, -1},
	NorthEast: {1, -1},
	East:      {1, 0},
	SouthEast: {1, 1},
	South:     {0, 1},
	SouthWest: {-1, 1},
	West:      {-1, 0},
	NorthWest: {-1, -1},
}

// Neighbor returns the cell the given number of steps away in a direction,
// wrapping at the world edges.
func Neighbor(h string, dir Direction, steps int) (string, error) {
	col, row, err := ToColRow(h)
	if err != nil {
		return "", err
	}
	d, ok := directionDelta[dir]
	if !ok {
		return "", &ParseError{Hash: string(dir)}
	}
	return FromColRow(col+d[0]*steps, row+d[1]*steps, len(h)), nil
}

// Neighbors returns all 8 adjacent cells in N,NE,E,SE,S,SW,W,NW order.
func Neighbors(h string) ([]string, error) {
	col, row, err := ToColRow(h)
	if err != nil {
		return nil, err
	}
	order := []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}
	out := make([]string, 0, 8)
	for _, dir := range order {
		d := directionDelta[dir]
		out = append(out, FromColRow(col+d[0], row+d[1], len(h)))
	}
	return out, nil
}

// Children returns the 32 direct children of a cell, row-major from the
// north-west corner. The first child is the top-left cell, which callers
// rely on when aligning plot-sized footprints.
func Children(h string) ([]string, error) {
	col, row, err := ToColRow(h)
	if err != nil {
		return nil, err
	}
	w, ht := dims(len(h))
	out := make([]string, 0, w*ht)
	for cy := 0; cy < ht; cy++ {
		for cx := 0; cx < w; cx++ {
			out = append(out, FromColRow(col*w+cx, row*ht+cy, len(h)+1))
		}
	}
	return out, nil
}

// Bordering returns the cells adjacent to, but not inside, the given set.
// The result is deduplicated and sorted. Used to find the periphery of
// player activity: where players are near, but not at.
func Bordering(hs []string) ([]string, error) {
	inside := make(map[string]struct{}, len(hs))
	for _, h := range hs {
		if err := Validate(h); err != nil {
			return nil, err
		}
		inside[h] = struct{}{}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, h := range hs {
		ns, err := Neighbors(h)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			if _, ok := inside[n]; ok {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Distance is a monotonic proxy for physical distance (squared col/row
// Euclidean), valid only for relative ordering. Hashes of unequal precision
// are truncated to the shorter one before comparison.
func Distance(a, b string) (float64, error) {
	if len(a) > len(b) {
		a = a[:len(b)]
	} else if len(b) > len(a) {
		b = b[:len(a)]
	}
	ac, ar, err := ToColRow(a)
	if err != nil {
		return 0, err
	}
	bc, br, err := ToColRow(b)
	if err != nil {
		return 0, err
	}
	dx := float64(ac - bc)
	dy := float64(ar - br)
	return dx*dx + dy*dy, nil
}

// AutoCorrectPrecision truncates or extends a hash to the target precision.
// Extension descends through the centre child at every step, so the result
// is deterministic and stays at the middle of the original cell.
func AutoCorrectPrecision(h string, precision int) (string, error) {
	return autoCorrect(h, precision, -1)
}

// AutoCorrectPrecisionSeeded extends using rv in [0,1) to pick the child at
// every step. The same rv always yields the same hash.
func AutoCorrectPrecisionSeeded(h string, precision int, rv float64) (string, error) {
	if rv < 0 {
		rv = 0
	}
	idx := int(rv * 32)
	if idx > 31 {
		idx = 31
	}
	return autoCorrect(h, precision, idx)
}

func autoCorrect(h string, precision, childIdx int) (string, error) {
	if err := Validate(h); err != nil {
		return "", err
	}
	if precision <= 0 {
		return "", &ParseError{Hash: h}
	}
	if len(h) >= precision {
		return h[:precision], nil
	}
	for len(h) < precision {
		w, ht := dims(len(h))
		var cx, cy int
		if childIdx < 0 {
			cx, cy = w/2, ht/2
		} else {
			i := childIdx % (w * ht)
			cx, cy = i%w, i/w
		}
		h += string(charFor(cx, cy, len(h)))
	}
	return h, nil
}

// CalculateLocation expands an origin hash into the exact rectangular block
// of cells a width x height footprint occupies, row-major with the origin at
// the north-west corner.
func CalculateLocation(h string, width, height int) ([]string, error) {
	col, row, err := ToColRow(h)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, width*height)
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			out = append(out, FromColRow(col+j, row+i, len(h)))
		}
	}
	return out, nil
}

// Expand returns each hash together with every proper prefix down to
// minPrecision. Used for "which regions contain this cell" store queries.
func Expand(hs []string, minPrecision int) ([]string, error) {
	var out []string
	for _, h := range hs {
		if err := Validate(h); err != nil {
			return nil, err
		}
		out = append(out, h)
		for p := len(h) - 1; p >= minPrecision; p-- {
			out = append(out, h[:p])
		}
	}
	return out, nil
}

// PlotsAt returns the parent-precision cells (plots) covering a rows x cols
// block of cells anchored at h. h must be the top-left cell of its plot.
func PlotsAt(h string, rows, cols int) ([]string, error) {
	if len(h) < 2 {
		return nil, &ParseError{Hash: h}
	}
	parent := h[:len(h)-1]
	pcol, prow, err := ToColRow(parent)
	if err != nil {
		return nil, err
	}
	w, ht := dims(len(parent))
	plotCols := (cols + w - 1) / w
	plotRows := (rows + ht - 1) / ht
	out := make([]string, 0, plotCols*plotRows)
	for i := 0; i < plotRows; i++ {
		for j := 0; j < plotCols; j++ {
			out = append(out, FromColRow(pcol+j, prow+i, len(parent)))
		}
	}
	return out, nil
}
