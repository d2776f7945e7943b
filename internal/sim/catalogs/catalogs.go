// Package catalogs loads the read-only template tables the spawn systems
// consume: the bestiary (monsters), the compendium (items and static
// structures) and the manually authored dungeon overrides. Each file is
// validated against its JSON schema before decoding, so a malformed catalog
// fails at startup instead of at spawn time.
package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"crossover.world/internal/sim/settings"
)

// AssetDef declares the footprint of a template: the rectangular block of
// cells it occupies and the hash precision its anchor is corrected to.
type AssetDef struct {
	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	Precision int `json:"precision,omitempty"`
}

// BeastDef is one monster template.
type BeastDef struct {
	Beast       string         `json:"beast"`
	Asset       AssetDef       `json:"asset"`
	Skills      map[string]int `json:"skills,omitempty"`
	SpawnWeight int            `json:"spawn_weight,omitempty"`
}

// PropState is the presentation of an item in one of its states. Attribute
// strings may reference declared variables as ${name}.
type PropState struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Variant     string `json:"variant,omitempty"`
}

// VariableDef declares a configurable item variable and its default.
type VariableDef struct {
	Type  string `json:"type"` // "string", "number" or "boolean"
	Value any    `json:"value"`
}

// PropDef is one item or static-structure template.
type PropDef struct {
	Prop       string                 `json:"prop"`
	Asset      AssetDef               `json:"asset"`
	Collider   bool                   `json:"collider,omitempty"`
	Durability int                    `json:"durability,omitempty"`
	Charges    int                    `json:"charges,omitempty"`
	States     map[string]PropState   `json:"states"`
	Variables  map[string]VariableDef `json:"variables,omitempty"`
}

// DungeonRoomDef is a designer-authored room seed.
type DungeonRoomDef struct {
	Room      string   `json:"room"`
	Entrances []string `json:"entrances,omitempty"`
}

// DungeonDef pins a dungeon to a city cell with explicit rooms; the graph
// generator consumes it verbatim as connectivity seeds.
type DungeonDef struct {
	Dungeon string           `json:"dungeon"`
	Rooms   []DungeonRoomDef `json:"rooms"`
}

type Catalogs struct {
	Bestiary   map[string]BeastDef
	Compendium map[string]PropDef
	Dungeons   []DungeonDef

	BestiaryDigest   string
	CompendiumDigest string
	DungeonsDigest   string
}

// Beast looks up a monster template.
func (c *Catalogs) Beast(name string) (BeastDef, bool) {
	b, ok := c.Bestiary[name]
	return b, ok
}

// Prop looks up an item/structure template.
func (c *Catalogs) Prop(name string) (PropDef, bool) {
	p, ok := c.Compendium[name]
	return p, ok
}

// DungeonForTerritory returns the manual override whose home cell lies in
// the territory, if a designer authored one.
func (c *Catalogs) DungeonForTerritory(territory string) *DungeonDef {
	for i := range c.Dungeons {
		if strings.HasPrefix(c.Dungeons[i].Dungeon, territory) {
			return &c.Dungeons[i]
		}
	}
	return nil
}

// Load reads and validates all catalogs from configDir against the schemas
// in schemaDir.
func Load(configDir, schemaDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadValidated(
		filepath.Join(configDir, "bestiary.json"),
		filepath.Join(schemaDir, "bestiary.schema.json"),
		&c.BestiaryDigest,
		func(raw []byte) error {
			var defs []BeastDef
			if err := json.Unmarshal(raw, &defs); err != nil {
				return err
			}
			c.Bestiary = make(map[string]BeastDef, len(defs))
			for _, d := range defs {
				applyAssetDefaults(&d.Asset)
				c.Bestiary[d.Beast] = d
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	if err := loadValidated(
		filepath.Join(configDir, "compendium.json"),
		filepath.Join(schemaDir, "compendium.schema.json"),
		&c.CompendiumDigest,
		func(raw []byte) error {
			var defs []PropDef
			if err := json.Unmarshal(raw, &defs); err != nil {
				return err
			}
			c.Compendium = make(map[string]PropDef, len(defs))
			for _, d := range defs {
				applyAssetDefaults(&d.Asset)
				if _, ok := d.States["default"]; !ok {
					return fmt.Errorf("prop %s: missing default state", d.Prop)
				}
				c.Compendium[d.Prop] = d
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	if err := loadValidated(
		filepath.Join(configDir, "dungeons.json"),
		filepath.Join(schemaDir, "dungeons.schema.json"),
		&c.DungeonsDigest,
		func(raw []byte) error {
			return json.Unmarshal(raw, &c.Dungeons)
		},
	); err != nil {
		return nil, err
	}

	return &c, nil
}

func applyAssetDefaults(a *AssetDef) {
	if a.Width <= 0 {
		a.Width = 1
	}
	if a.Height <= 0 {
		a.Height = 1
	}
	if a.Precision <= 0 {
		a.Precision = settings.Precision(settings.TierUnit)
	}
}

func loadValidated(path, schemaPath string, digest *string, decode func([]byte) error) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	*digest = sha256Hex(raw)

	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("compile %s: %w", filepath.Base(schemaPath), err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := decode(raw); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
