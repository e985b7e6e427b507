package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zonegraph/internal/domain"
	"zonegraph/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.GraphStore using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.GraphStore = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		name TEXT NOT NULL,
		properties JSON,
		created_at TEXT NOT NULL,
		UNIQUE (label, name)
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (from_id, to_id, type),
		FOREIGN KEY (from_id) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (to_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
	`

	_, err := r.db.Exec(schema)
	return err
}

// FindNode returns the node with label whose property key equals value
func (r *Repository) FindNode(ctx context.Context, label domain.Label, key, value string) (*domain.Node, error) {
	var row *sql.Row
	if key == domain.PropName {
		row = r.db.QueryRowContext(ctx, `
			SELECT `+nodeColumns+`
			FROM nodes
			WHERE label = ? AND name = ?
		`, string(label), domain.NormalizeName(value))
	} else {
		row = r.db.QueryRowContext(ctx, `
			SELECT `+nodeColumns+`
			FROM nodes
			WHERE label = ? AND json_extract(properties, ?) = ?
			ORDER BY name
			LIMIT 1
		`, string(label), jsonPath(key), value)
	}

	var nr nodeRow
	if err := row.Scan(nr.scanArgs()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.StoreError{Op: "find node", Err: err}
	}

	node, err := nr.toDomain()
	if err != nil {
		return nil, &domain.StoreError{Op: "find node", Err: err}
	}
	return node, nil
}

// CreateNode inserts the node unless (label, name) already exists, then
// returns the stored row
func (r *Repository) CreateNode(ctx context.Context, label domain.Label, props map[string]any) (*domain.Node, error) {
	name, ok := repository.NameFromProps(props)
	if !ok {
		return nil, &domain.StoreError{Op: "create node", Err: errors.New("missing name property")}
	}
	if !label.Valid() {
		return nil, &domain.StoreError{Op: "create node", Err: fmt.Errorf("unknown label %q", label)}
	}

	node := domain.NewNode(label, name)
	for k, v := range repository.ExtraProps(props) {
		node.SetProperty(k, v)
	}

	args, err := nodeInsertArgs(node)
	if err != nil {
		return nil, &domain.StoreError{Op: "create node", Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO nodes (id, label, name, properties, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "create node", Err: err}
	}

	stored, err := r.FindNode(ctx, label, domain.PropName, name)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, &domain.StoreError{Op: "create node", Err: fmt.Errorf("node %s/%s not found after insert", label, name)}
	}
	return stored, nil
}

// FindRelationship reports whether the edge exists
func (r *Repository) FindRelationship(ctx context.Context, start, end *domain.Node, relType domain.RelType) (bool, error) {
	if start == nil || end == nil {
		return false, &domain.StoreError{Op: "find relationship", Err: errors.New("nil endpoint")}
	}

	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM edges WHERE from_id = ? AND to_id = ? AND type = ?
		)
	`, start.ID, end.ID, string(relType)).Scan(&exists)
	if err != nil {
		return false, &domain.StoreError{Op: "find relationship", Err: err}
	}
	return exists == 1, nil
}

// CreateRelationship inserts the edge unless it already exists, then returns
// the stored row
func (r *Repository) CreateRelationship(ctx context.Context, start *domain.Node, relType domain.RelType, end *domain.Node) (*domain.Edge, error) {
	if start == nil || end == nil {
		return nil, &domain.StoreError{Op: "create relationship", Err: errors.New("nil endpoint")}
	}

	edge := domain.NewEdge(start.ID, end.ID, relType)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO edges (id, from_id, to_id, type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, edgeInsertArgs(edge)...)
	if err != nil {
		return nil, &domain.StoreError{Op: "create relationship", Err: err}
	}

	var er edgeRow
	err = r.db.QueryRowContext(ctx, `
		SELECT `+edgeColumns+`
		FROM edges
		WHERE from_id = ? AND to_id = ? AND type = ?
	`, start.ID, end.ID, string(relType)).Scan(er.scanArgs()...)
	if err != nil {
		return nil, &domain.StoreError{Op: "create relationship", Err: err}
	}

	stored, err := er.toDomain()
	if err != nil {
		return nil, &domain.StoreError{Op: "create relationship", Err: err}
	}
	return stored, nil
}

// ExportFragment loads every node and edge
func (r *Repository) ExportFragment(ctx context.Context) (*domain.GraphFragment, error) {
	frag := domain.NewGraphFragment()

	nodes, err := r.listNodes(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: "export", Err: err}
	}
	for _, n := range nodes {
		frag.AddNode(*n)
	}

	edges, err := r.listEdges(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: "export", Err: err}
	}
	for _, e := range edges {
		frag.AddEdge(*e)
	}

	return frag, nil
}

func (r *Repository) listNodes(ctx context.Context) ([]*domain.Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes
		ORDER BY label, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.Node
	for rows.Next() {
		var nr nodeRow
		if err := rows.Scan(nr.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := nr.toDomain()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func (r *Repository) listEdges(ctx context.Context) ([]*domain.Edge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+edgeColumns+`
		FROM edges
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []*domain.Edge
	for rows.Next() {
		var er edgeRow
		if err := rows.Scan(er.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge, err := er.toDomain()
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
