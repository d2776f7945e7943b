// Package geohash implements the hierarchical spatial keys the world is
// indexed by. A hash is a string over the base-32 geohash alphabet; a longer
// hash is strictly contained in the region named by any of its prefixes, and
// prefix containment is the only valid "is inside" test. Every function here
// works on an integer col/row grid derived from the hash bits; hashes are
// never decoded to latitude/longitude floats.
package geohash

import "fmt"

const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

var charIndex = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = int8(i)
	}
	return m
}()

// ParseError reports a malformed hash. There is no silent correction.
type ParseError struct {
	Hash string
	Pos  int
}

func (e *ParseError) Error() string {
	if len(e.Hash) == 0 {
		return "geohash: empty hash"
	}
	return fmt.Sprintf("geohash %q: invalid character at position %d", e.Hash, e.Pos)
}

// Validate fails fast on any character outside the hash alphabet.
func Validate(h string) error {
	if len(h) == 0 {
		return &ParseError{Hash: h}
	}
	for i := 0; i < len(h); i++ {
		if charIndex[h[i]] < 0 {
			return &ParseError{Hash: h, Pos: i}
		}
	}
	return nil
}

// dims returns the subdivision of a parent cell by the character at string
// index i: even positions split 8 cols x 4 rows, odd positions 4 cols x 8 rows.
func dims(i int) (w, h int) {
	if i%2 == 0 {
		return 8, 4
	}
	return 4, 8
}

// GridSize returns the total col/row extent of the grid at a precision.
func GridSize(precision int) (w, h int) {
	w, h = 1, 1
	for i := 0; i < precision; i++ {
		cw, ch := dims(i)
		w *= cw
		h *= ch
	}
	return w, h
}

// cellOf splits a character value into its (cx, cy) within the parent cell.
// cy grows southward.
func cellOf(v, pos int) (cx, cy int) {
	b := [5]int{v >> 4 & 1, v >> 3 & 1, v >> 2 & 1, v >> 1 & 1, v & 1}
	if pos%2 == 0 {
		// lon,lat,lon,lat,lon
		cx = b[0]<<2 | b[2]<<1 | b[4]
		cy = 3 - (b[1]<<1 | b[3])
	} else {
		// lat,lon,lat,lon,lat
		cx = b[1]<<1 | b[3]
		cy = 7 - (b[0]<<2 | b[2]<<1 | b[4])
	}
	return cx, cy
}

// charFor is the inverse of cellOf.
func charFor(cx, cy, pos int) byte {
	var v int
	if pos%2 == 0 {
		lat := 3 - cy
		v = (cx>>2&1)<<4 | (lat>>1&1)<<3 | (cx>>1&1)<<2 | (lat&1)<<1 | cx&1
	} else {
		lat := 7 - cy
		v = (lat>>2&1)<<4 | (cx>>1&1)<<3 | (lat>>1&1)<<2 | (cx&1)<<1 | lat&1
	}
	return alphabet[v]
}

// ToColRow converts a hash to its cell coordinates at its own precision.
// Col grows east, row grows south.
func ToColRow(h string) (col, row int, err error) {
	if err := Validate(h); err != nil {
		return 0, 0, err
	}
	for i := 0; i < len(h); i++ {
		w, ht := dims(i)
		cx, cy := cellOf(int(charIndex[h[i]]), i)
		col = col*w + cx
		row = row*ht + cy
	}
	return col, row, nil
}

// FromColRow converts cell coordinates back to a hash of the given precision.
// Coordinates wrap around the world edges.
func FromColRow(col, row, precision int) string {
	w, h := GridSize(precision)
	col = mod(col, w)
	row = mod(row, h)
	buf := make([]byte, precision)
	for i := precision - 1; i >= 0; i-- {
		cw, ch := dims(i)
		buf[i] = charFor(mod(col, cw), mod(row, ch), i)
		col = floorDiv(col, cw)
		row = floorDiv(row, ch)
	}
	return string(buf)
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}
