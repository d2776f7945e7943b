package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	configDir = "../../../configs"
	schemaDir = "../../../schemas"
)

func TestLoad(t *testing.T) {
	c, err := Load(configDir, schemaDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}

	goblin, ok := c.Beast("goblin")
	if !ok {
		t.Fatal("bestiary missing goblin")
	}
	if goblin.Asset.Width != 1 || goblin.Asset.Height != 1 || goblin.Asset.Precision != 8 {
		t.Fatalf("goblin asset = %+v", goblin.Asset)
	}
	if goblin.SpawnWeight <= 0 {
		t.Fatal("goblin must be spawnable by the respawner")
	}

	door, ok := c.Prop("woodendoor")
	if !ok {
		t.Fatal("compendium missing woodendoor")
	}
	if !door.Collider {
		t.Fatal("woodendoor must be a collider")
	}
	if _, ok := door.States["default"]; !ok {
		t.Fatal("woodendoor missing default state")
	}

	if _, ok := c.Beast("unicorn"); ok {
		t.Fatal("unknown beast lookup should fail")
	}

	if c.BestiaryDigest == "" || c.CompendiumDigest == "" || c.DungeonsDigest == "" {
		t.Fatal("catalog digests not recorded")
	}
}

func TestDungeonForTerritory(t *testing.T) {
	c, err := Load(configDir, schemaDir)
	if err != nil {
		t.Fatal(err)
	}
	d := c.DungeonForTerritory("w2")
	if d == nil {
		t.Fatal("territory w2 has an authored dungeon")
	}
	if d.Dungeon != "w21z" || len(d.Rooms) != 2 {
		t.Fatalf("dungeon = %+v", d)
	}
	if c.DungeonForTerritory("9q") != nil {
		t.Fatal("territory 9q has no authored dungeon")
	}
}

func TestLoad_SchemaRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	copyFile := func(name string) {
		b, err := os.ReadFile(filepath.Join(configDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	copyFile("compendium.json")
	copyFile("dungeons.json")

	// Asset width below 1 violates the schema.
	bad := `[{"beast":"gremlin","asset":{"width":0}}]`
	if err := os.WriteFile(filepath.Join(dir, "bestiary.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir, schemaDir); err == nil {
		t.Fatal("malformed bestiary should fail validation")
	}
}

func TestAssetDefaults(t *testing.T) {
	a := AssetDef{}
	applyAssetDefaults(&a)
	if a.Width != 1 || a.Height != 1 || a.Precision != 8 {
		t.Fatalf("defaults = %+v", a)
	}
}
