package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zonegraph/internal/domain"
)

// ============================================================================
// Conversion Helpers
// ============================================================================

// timeLayout is the stored text form of timestamps
const timeLayout = time.RFC3339Nano

// formatTime converts a timestamp to its stored form
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime converts a stored timestamp back, returning zero on bad input
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// jsonPath builds a json_extract path for a top-level property key
func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
// Returns empty NullString for nil or empty maps
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	// Handle empty maps - don't store "{}"
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Node Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between:
// - nodeColumns constant
// - scanArgs() return slice
// - nodeInsertArgs() return slice
//
// Same pattern applies to edges.

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	Label          string
	Name           string
	PropertiesJSON sql.NullString
	CreatedAt      string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, label, name, properties, created_at
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.Label,          // 2
		&r.Name,           // 3
		&r.PropertiesJSON, // 4
		&r.CreatedAt,      // 5
	}
}

// toDomain converts the scanned row to a domain.Node
func (r *nodeRow) toDomain() (*domain.Node, error) {
	node := &domain.Node{
		ID:         r.ID,
		Label:      domain.Label(r.Label),
		Name:       r.Name,
		Properties: make(map[string]any),
		CreatedAt:  parseTime(r.CreatedAt),
	}

	if err := unmarshalJSONField(r.PropertiesJSON, &node.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}

	return node, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, label, name, properties, created_at`

// nodeInsertArgs prepares arguments for node INSERT
// Returns: id, label, name, properties, created_at
func nodeInsertArgs(node *domain.Node) ([]interface{}, error) {
	propsJSON, err := marshalToNull(node.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	return []interface{}{
		node.ID,
		string(node.Label),
		node.Name,
		propsJSON,
		formatTime(node.CreatedAt),
	}, nil
}

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	ID        string
	FromID    string
	ToID      string
	Type      string
	CreatedAt string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly:
// id, from_id, to_id, type, created_at
func (r *edgeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.FromID,    // 2
		&r.ToID,      // 3
		&r.Type,      // 4
		&r.CreatedAt, // 5
	}
}

// toDomain converts the scanned row to a domain.Edge
func (r *edgeRow) toDomain() (*domain.Edge, error) {
	if r.FromID == "" || r.ToID == "" {
		return nil, fmt.Errorf("edge %s has empty endpoint", r.ID)
	}
	return &domain.Edge{
		ID:        r.ID,
		FromID:    r.FromID,
		ToID:      r.ToID,
		Type:      domain.RelType(r.Type),
		CreatedAt: parseTime(r.CreatedAt),
	}, nil
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `id, from_id, to_id, type, created_at`

// edgeInsertArgs prepares arguments for edge INSERT
// Returns: id, from_id, to_id, type, created_at
func edgeInsertArgs(edge *domain.Edge) []interface{} {
	return []interface{}{
		edge.ID,
		edge.FromID,
		edge.ToID,
		string(edge.Type),
		formatTime(edge.CreatedAt),
	}
}
