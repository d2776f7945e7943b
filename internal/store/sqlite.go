package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"crossover.world/internal/sim/geohash"
	"crossover.world/internal/sim/settings"
)

// SQLite is the sqlite-backed EntityStore. Entities are stored as JSON
// documents; location cells are mirrored into side tables so that
// prefix-containment queries stay indexed.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func initPragmas(db *sql.DB) error {
	// WAL suits the engine's many-readers/occasional-writer shape.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS monsters (
			id   TEXT PRIMARY KEY,
			doc  TEXT NOT NULL,
			loct TEXT NOT NULL,
			loci TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS monster_cells (
			monster_id TEXT NOT NULL,
			cell       TEXT NOT NULL,
			loct       TEXT NOT NULL,
			loci       TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_monster_cells ON monster_cells(loct, loci, cell);`,
		`CREATE TABLE IF NOT EXISTS items (
			id   TEXT PRIMARY KEY,
			doc  TEXT NOT NULL,
			loct TEXT NOT NULL,
			loci TEXT NOT NULL,
			cld  INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS item_cells (
			item_id TEXT NOT NULL,
			cell    TEXT NOT NULL,
			loct    TEXT NOT NULL,
			loci    TEXT NOT NULL,
			cld     INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_item_cells ON item_cells(loct, loci, cell);`,
		`CREATE TABLE IF NOT EXISTS worlds (
			id   TEXT PRIMARY KEY,
			doc  TEXT NOT NULL,
			loct TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS world_cells (
			world_id TEXT NOT NULL,
			cell     TEXT NOT NULL,
			loct     TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_world_cells ON world_cells(loct, cell);`,
		`CREATE TABLE IF NOT EXISTS players (
			id       TEXT PRIMARY KEY,
			doc      TEXT NOT NULL,
			loci     TEXT NOT NULL,
			loggedin INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// prefixClause builds "(cell LIKE ?||'%' OR ...)" plus its args.
func prefixClause(prefixes []string) (string, []any) {
	parts := make([]string, len(prefixes))
	args := make([]any, len(prefixes))
	for i, p := range prefixes {
		parts[i] = "cell LIKE ? || '%'"
		args[i] = p
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func (s *SQLite) SaveMonster(ctx context.Context, m MonsterEntity) (MonsterEntity, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return m, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO monsters(id, doc, loct, loci) VALUES(?,?,?,?)`,
			m.Monster, string(doc), string(m.LocT), m.LocI); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM monster_cells WHERE monster_id = ?`, m.Monster); err != nil {
			return err
		}
		for _, cell := range m.Loc {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO monster_cells(monster_id, cell, loct, loci) VALUES(?,?,?,?)`,
				m.Monster, cell, string(m.LocT), m.LocI); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return m, fmt.Errorf("save monster %s: %w: %v", m.Monster, ErrUnavailable, err)
	}
	return m, nil
}

func (s *SQLite) GetMonster(ctx context.Context, id string) (MonsterEntity, bool, error) {
	var m MonsterEntity
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM monsters WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return m, false, nil
	}
	if err != nil {
		return m, false, fmt.Errorf("get monster %s: %w: %v", id, ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return m, false, err
	}
	return m, true, nil
}

func (s *SQLite) DeleteMonster(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM monsters WHERE id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM monster_cells WHERE monster_id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete monster %s: %w: %v", id, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) CountMonsters(ctx context.Context, prefixes []string, locT settings.LocationType, locI string) (int, error) {
	if len(prefixes) == 0 {
		return 0, nil
	}
	clause, args := prefixClause(prefixes)
	q := `SELECT COUNT(DISTINCT monster_id) FROM monster_cells WHERE loct = ? AND loci = ? AND ` + clause
	var n int
	err := s.db.QueryRowContext(ctx, q, append([]any{string(locT), locI}, args...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count monsters: %w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLite) MonstersTotal(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monsters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count monsters: %w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLite) SaveItem(ctx context.Context, it ItemEntity) (ItemEntity, error) {
	doc, err := json.Marshal(it)
	if err != nil {
		return it, err
	}
	cld := 0
	if it.Collider {
		cld = 1
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO items(id, doc, loct, loci, cld) VALUES(?,?,?,?,?)`,
			it.Item, string(doc), string(it.LocT), it.LocI, cld); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM item_cells WHERE item_id = ?`, it.Item); err != nil {
			return err
		}
		for _, cell := range it.Loc {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO item_cells(item_id, cell, loct, loci, cld) VALUES(?,?,?,?,?)`,
				it.Item, cell, string(it.LocT), it.LocI, cld); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return it, fmt.Errorf("save item %s: %w: %v", it.Item, ErrUnavailable, err)
	}
	return it, nil
}

func (s *SQLite) GetItem(ctx context.Context, id string) (ItemEntity, bool, error) {
	var it ItemEntity
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM items WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return it, false, nil
	}
	if err != nil {
		return it, false, fmt.Errorf("get item %s: %w: %v", id, ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(doc), &it); err != nil {
		return it, false, err
	}
	return it, true, nil
}

func (s *SQLite) DeleteItem(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM item_cells WHERE item_id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w: %v", id, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) ItemsInGeohash(ctx context.Context, prefixes []string, locT settings.LocationType, locI string) ([]ItemEntity, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	clause, args := prefixClause(prefixes)
	q := `SELECT DISTINCT i.doc FROM items i JOIN item_cells c ON c.item_id = i.id
		WHERE c.loct = ? AND c.loci = ? AND ` + clause + ` ORDER BY i.id`
	rows, err := s.db.QueryContext(ctx, q, append([]any{string(locT), locI}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("items in geohash: %w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []ItemEntity
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("items in geohash: %w: %v", ErrUnavailable, err)
		}
		var it ItemEntity
		if err := json.Unmarshal([]byte(doc), &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLite) CollidersInGeohash(ctx context.Context, cells []string, locT settings.LocationType, locI string) (int, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	clause, args := prefixClause(cells)
	q := `SELECT COUNT(DISTINCT item_id) FROM item_cells WHERE cld = 1 AND loct = ? AND loci = ? AND ` + clause
	var n int
	err := s.db.QueryRowContext(ctx, q, append([]any{string(locT), locI}, args...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("colliders in geohash: %w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLite) ItemsTotal(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLite) SaveWorld(ctx context.Context, w WorldEntity) (WorldEntity, error) {
	doc, err := json.Marshal(w)
	if err != nil {
		return w, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO worlds(id, doc, loct) VALUES(?,?,?)`,
			w.World, string(doc), string(w.LocT)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM world_cells WHERE world_id = ?`, w.World); err != nil {
			return err
		}
		for _, cell := range w.Loc {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO world_cells(world_id, cell, loct) VALUES(?,?,?)`,
				w.World, cell, string(w.LocT)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return w, fmt.Errorf("save world %s: %w: %v", w.World, ErrUnavailable, err)
	}
	return w, nil
}

func (s *SQLite) GetWorld(ctx context.Context, id string) (WorldEntity, bool, error) {
	var w WorldEntity
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM worlds WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return w, false, nil
	}
	if err != nil {
		return w, false, fmt.Errorf("get world %s: %w: %v", id, ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(doc), &w); err != nil {
		return w, false, err
	}
	return w, true, nil
}

func (s *SQLite) WorldsContainingGeohash(ctx context.Context, cells []string, locT settings.LocationType) ([]WorldEntity, error) {
	expanded, err := geohash.Expand(cells, settings.Precision(settings.TierTown))
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(expanded))
	args := []any{string(locT)}
	for i, e := range expanded {
		parts[i] = "?"
		args = append(args, e)
	}
	q := `SELECT DISTINCT w.doc FROM worlds w JOIN world_cells c ON c.world_id = w.id
		WHERE c.loct = ? AND c.cell IN (` + strings.Join(parts, ",") + `) ORDER BY w.id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("worlds containing geohash: %w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []WorldEntity
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("worlds containing geohash: %w: %v", ErrUnavailable, err)
		}
		var w WorldEntity
		if err := json.Unmarshal([]byte(doc), &w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLite) WorldsTotal(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM worlds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count worlds: %w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLite) SavePlayer(ctx context.Context, p PlayerEntity) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	lgn := 0
	if p.LoggedIn {
		lgn = 1
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO players(id, doc, loci, loggedin) VALUES(?,?,?,?)`,
		p.Player, string(doc), p.LocI, lgn); err != nil {
		return fmt.Errorf("save player %s: %w: %v", p.Player, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) LoggedInPlayers(ctx context.Context, locI string, ids []string) ([]PlayerEntity, error) {
	q := `SELECT doc FROM players WHERE loggedin = 1 AND loci = ?`
	args := []any{locI}
	if len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = "?"
			args = append(args, id)
		}
		q += ` AND id IN (` + strings.Join(parts, ",") + `)`
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("logged-in players: %w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []PlayerEntity
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("logged-in players: %w: %v", ErrUnavailable, err)
		}
		var p PlayerEntity
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
