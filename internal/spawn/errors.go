package spawn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTemplateNotFound reports a beast or prop name missing from its catalog.
var ErrTemplateNotFound = errors.New("template not found")

// ErrNotGeohashLocation reports a spawn aimed at a non-spatial location type.
var ErrNotGeohashLocation = errors.New("location type does not occupy geohash cells")

// BlockedError reports a spawn vetoed by terrain or colliders at its footprint.
type BlockedError struct {
	Template string
	Cells    []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("cannot spawn %s: %s untraversable", e.Template, strings.Join(e.Cells, ","))
}

// OverlapError reports a world structure spawn on plots already claimed.
type OverlapError struct {
	Worlds []string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("cannot spawn world over existing worlds %s", strings.Join(e.Worlds, ","))
}
