package rules

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS categories (
    position INTEGER PRIMARY KEY,
    name     TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS category_keywords (
    category_position INTEGER NOT NULL REFERENCES categories(position) ON DELETE CASCADE,
    position          INTEGER NOT NULL,
    keyword           TEXT NOT NULL,
    PRIMARY KEY (category_position, position)
);
`

// SQLiteStore keeps the rules in a SQLite database. Category and keyword
// order are stored explicitly so a load returns exactly what was saved.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if needed creates) the database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules database: %w", err)
	}
	// One connection keeps writes serialised and makes ":memory:" usable.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to rules database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create rules schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the rules. An empty database yields {"Uncategorized": []}.
func (s *SQLiteStore) Load(ctx context.Context) (RuleSet, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.name, k.keyword
FROM categories c
LEFT JOIN category_keywords k ON k.category_position = c.position
ORDER BY c.position ASC, k.position ASC`)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to query category rules: %w", err)
	}
	defer rows.Close()

	rs := RuleSet{Rules: []Rule{}}
	for rows.Next() {
		var (
			name    string
			keyword sql.NullString
		)
		if err := rows.Scan(&name, &keyword); err != nil {
			return RuleSet{}, fmt.Errorf("failed to scan category rule: %w", err)
		}
		if n := len(rs.Rules); n == 0 || rs.Rules[n-1].Category != name {
			rs.Rules = append(rs.Rules, Rule{Category: name, Keywords: []string{}})
		}
		if keyword.Valid {
			last := &rs.Rules[len(rs.Rules)-1]
			last.Keywords = append(last.Keywords, keyword.String)
		}
	}
	if err := rows.Err(); err != nil {
		return RuleSet{}, fmt.Errorf("failed to read category rules: %w", err)
	}

	rs.ensureUncategorized()
	return rs, nil
}

// Save replaces every rule in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, rs RuleSet) error {
	rs = rs.Clone()
	rs.ensureUncategorized()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_keywords`); err != nil {
		return fmt.Errorf("failed to clear keywords: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	for i, rule := range rs.Rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (position, name) VALUES (?, ?)`, i, rule.Category); err != nil {
			return fmt.Errorf("failed to insert category %q: %w", rule.Category, err)
		}
		for j, keyword := range rule.Keywords {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO category_keywords (category_position, position, keyword) VALUES (?, ?, ?)`,
				i, j, keyword); err != nil {
				return fmt.Errorf("failed to insert keyword %q: %w", keyword, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category rules: %w", err)
	}
	return nil
}
