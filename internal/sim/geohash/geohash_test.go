package geohash

import (
	"reflect"
	"strings"
	"testing"
)

func TestCalculateLocation_FootprintContract(t *testing.T) {
	cases := []struct {
		hash          string
		width, height int
		want          []string
	}{
		{"w21z3wcm", 2, 2, []string{"w21z3wcm", "w21z3wct", "w21z3wck", "w21z3wcs"}},
		{"w21z3wcm", 1, 1, []string{"w21z3wcm"}},
		{"w21z3wcm", 2, 3, []string{"w21z3wcm", "w21z3wct", "w21z3wck", "w21z3wcs", "w21z3wc7", "w21z3wce"}},
	}
	for _, tc := range cases {
		got, err := CalculateLocation(tc.hash, tc.width, tc.height)
		if err != nil {
			t.Fatalf("CalculateLocation(%s,%d,%d): %v", tc.hash, tc.width, tc.height, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("CalculateLocation(%s,%d,%d) = %v, want %v", tc.hash, tc.width, tc.height, got, tc.want)
		}
	}
}

func TestExpand(t *testing.T) {
	got, err := Expand([]string{"w21z3wcm"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"w21z3wcm", "w21z3wc", "w21z3w", "w21z3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expand = %v, want %v", got, want)
	}

	got, err = Expand([]string{"w21z3wcm"}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"w21z3wcm"}) {
		t.Fatalf("Expand at own precision = %v", got)
	}

	got, err = Expand([]string{"w21z3wc"}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"w21z3wc"}) {
		t.Fatalf("Expand below min precision = %v", got)
	}
}

func TestNeighbor(t *testing.T) {
	cases := []struct {
		hash  string
		dir   Direction
		steps int
		want  string
	}{
		{"w21z3wcm", East, 1, "w21z3wct"},
		{"w21z3wcm", South, 1, "w21z3wck"},
		{"w21z3wcm", SouthEast, 1, "w21z3wcs"},
		{"w21z9", East, 1, "w21zd"},
		{"w21z9", North, 1, "w21zc"},
	}
	for _, tc := range cases {
		got, err := Neighbor(tc.hash, tc.dir, tc.steps)
		if err != nil {
			t.Fatalf("Neighbor(%s,%s): %v", tc.hash, tc.dir, err)
		}
		if got != tc.want {
			t.Fatalf("Neighbor(%s,%s,%d) = %s, want %s", tc.hash, tc.dir, tc.steps, got, tc.want)
		}
	}
}

func TestNeighborRoundTrip(t *testing.T) {
	h := "w21z3wcm"
	east, err := Neighbor(h, East, 3)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Neighbor(east, West, 3)
	if err != nil {
		t.Fatal(err)
	}
	if back != h {
		t.Fatalf("east/west round trip: %s -> %s -> %s", h, east, back)
	}
}

func TestChildren(t *testing.T) {
	kids, err := Children("w21z9")
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 32 {
		t.Fatalf("children count = %d", len(kids))
	}
	seen := map[string]struct{}{}
	for _, k := range kids {
		if !strings.HasPrefix(k, "w21z9") {
			t.Fatalf("child %s does not extend parent", k)
		}
		if len(k) != 6 {
			t.Fatalf("child %s has wrong precision", k)
		}
		seen[k] = struct{}{}
	}
	if len(seen) != 32 {
		t.Fatalf("children not unique: %d distinct", len(seen))
	}

	// The first child is the north-west cell: its east and south neighbours
	// must also be children of the same parent.
	e, _ := Neighbor(kids[0], East, 1)
	s, _ := Neighbor(kids[0], South, 1)
	if _, ok := seen[e]; !ok {
		t.Fatalf("east of top-left child %s escapes parent", kids[0])
	}
	if _, ok := seen[s]; !ok {
		t.Fatalf("south of top-left child %s escapes parent", kids[0])
	}
}

func TestBordering(t *testing.T) {
	got, err := Bordering([]string{"w21z9"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 {
		t.Fatalf("bordering of a single cell should be its 8 neighbours, got %d: %v", len(got), got)
	}
	for _, b := range got {
		if b == "w21z9" || strings.HasPrefix(b, "w21z9") {
			t.Fatalf("bordering returned a cell inside the input set: %s", b)
		}
	}

	// Two adjacent cells share border cells; the shared ones must appear once
	// and neither input may appear.
	e, _ := Neighbor("w21z9", East, 1)
	got, err = Bordering([]string{"w21z9", e})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, b := range got {
		seen[b]++
		if b == "w21z9" || b == e {
			t.Fatalf("input cell leaked into bordering set: %s", b)
		}
	}
	for b, n := range seen {
		if n != 1 {
			t.Fatalf("duplicate bordering cell %s", b)
		}
	}
}

func TestDistanceOrdering(t *testing.T) {
	base := "w21z3wcm"
	near, _ := Neighbor(base, East, 1)
	far, _ := Neighbor(base, East, 5)
	dNear, err := Distance(base, near)
	if err != nil {
		t.Fatal(err)
	}
	dFar, err := Distance(base, far)
	if err != nil {
		t.Fatal(err)
	}
	if dNear >= dFar {
		t.Fatalf("distance not monotonic: near=%f far=%f", dNear, dFar)
	}
	if d, _ := Distance(base, base); d != 0 {
		t.Fatalf("self distance = %f", d)
	}
}

func TestAutoCorrectPrecision(t *testing.T) {
	got, err := AutoCorrectPrecision("w21z3wcm", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != "w21z3" {
		t.Fatalf("truncate = %s", got)
	}

	ext, err := AutoCorrectPrecision("w2", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ext) != 5 || !strings.HasPrefix(ext, "w2") {
		t.Fatalf("extend = %s", ext)
	}
	ext2, _ := AutoCorrectPrecision("w2", 5)
	if ext != ext2 {
		t.Fatalf("unseeded extension not deterministic: %s vs %s", ext, ext2)
	}

	s1, err := AutoCorrectPrecisionSeeded("w2", 6, 0.42)
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := AutoCorrectPrecisionSeeded("w2", 6, 0.42)
	if s1 != s2 {
		t.Fatalf("seeded extension not deterministic: %s vs %s", s1, s2)
	}
	s3, _ := AutoCorrectPrecisionSeeded("w2", 6, 0.91)
	if s1 == s3 {
		t.Fatalf("different seeds should diverge (got %s twice)", s1)
	}
}

func TestColRowRoundTrip(t *testing.T) {
	for _, h := range []string{"w", "w2", "w21z9", "w21z3wcm", "59ke577h", "0", "zzzzz"} {
		col, row, err := ToColRow(h)
		if err != nil {
			t.Fatalf("ToColRow(%s): %v", h, err)
		}
		if back := FromColRow(col, row, len(h)); back != h {
			t.Fatalf("round trip %s -> (%d,%d) -> %s", h, col, row, back)
		}
	}
}

func TestPlotsAt(t *testing.T) {
	kids, err := Children("w21z3wc")
	if err != nil {
		t.Fatal(err)
	}
	origin := kids[0]

	// A single plot covers a 4x8 block of unit cells.
	plots, err := PlotsAt(origin, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(plots, []string{"w21z3wc"}) {
		t.Fatalf("single plot = %v", plots)
	}

	// One cell wider spills into the eastern plot.
	plots, err = PlotsAt(origin, 8, 5)
	if err != nil {
		t.Fatal(err)
	}
	east, _ := Neighbor("w21z3wc", East, 1)
	if !reflect.DeepEqual(plots, []string{"w21z3wc", east}) {
		t.Fatalf("two plots = %v", plots)
	}
}

func TestValidate(t *testing.T) {
	for _, h := range []string{"", "w21a", "W21z", "w21 ", "w2l"} {
		if err := Validate(h); err == nil {
			t.Fatalf("Validate(%q) accepted a malformed hash", h)
		}
	}
	var perr *ParseError
	err := Validate("w2a9")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if pe, ok := err.(*ParseError); !ok || pe.Pos != 2 {
		t.Fatalf("parse error position = %+v", perr)
	}
	if err := Validate("w21z3wcm"); err != nil {
		t.Fatalf("valid hash rejected: %v", err)
	}
}
