package memory

import (
	"context"
	"sync"
	"testing"

	"zonegraph/internal/domain"
)

func nameProps(name string) map[string]any {
	return map[string]any{domain.PropName: name}
}

func TestCreateNode(t *testing.T) {
	ctx := context.Background()

	t.Run("is idempotent", func(t *testing.T) {
		repo := New()

		first, err := repo.CreateNode(ctx, domain.LabelServer, nameProps("example.com"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := repo.CreateNode(ctx, domain.LabelServer, nameProps("example.com."))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected same ID, got %s and %s", first.ID, second.ID)
		}

		frag, _ := repo.ExportFragment(ctx)
		if len(frag.Nodes) != 1 {
			t.Errorf("expected 1 node, got %d", len(frag.Nodes))
		}
	})

	t.Run("returned nodes are copies", func(t *testing.T) {
		repo := New()

		node, _ := repo.CreateNode(ctx, domain.LabelServer, nameProps("example.com"))
		node.SetProperty("mutated", true)

		found, _ := repo.FindNode(ctx, domain.LabelServer, domain.PropName, "example.com")
		if _, ok := found.GetProperty("mutated"); ok {
			t.Error("expected stored node to be unaffected by caller mutation")
		}
	})

	t.Run("concurrent creates store one node", func(t *testing.T) {
		repo := New()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				repo.CreateNode(ctx, domain.LabelCountry, nameProps("DE"))
			}()
		}
		wg.Wait()

		frag, _ := repo.ExportFragment(ctx)
		if len(frag.Nodes) != 1 {
			t.Errorf("expected 1 node, got %d", len(frag.Nodes))
		}
	})
}

func TestFindNode(t *testing.T) {
	ctx := context.Background()
	repo := New()

	repo.CreateNode(ctx, domain.LabelServer, map[string]any{
		domain.PropName:      "example.com",
		domain.PropRegistrar: "Example Registrar",
	})

	tests := []struct {
		name  string
		label domain.Label
		key   string
		value string
		found bool
	}{
		{"by name", domain.LabelServer, domain.PropName, "example.com", true},
		{"wrong label", domain.LabelDnsServer, domain.PropName, "example.com", false},
		{"missing", domain.LabelServer, domain.PropName, "other.com", false},
		{"by property", domain.LabelServer, domain.PropRegistrar, "Example Registrar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := repo.FindNode(ctx, tt.label, tt.key, tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (node != nil) != tt.found {
				t.Errorf("expected found=%v, got %v", tt.found, node)
			}
		})
	}
}

func TestCreateRelationship(t *testing.T) {
	ctx := context.Background()
	repo := New()

	ns, _ := repo.CreateNode(ctx, domain.LabelDnsServer, nameProps("ns1.example.com"))
	srv, _ := repo.CreateNode(ctx, domain.LabelServer, nameProps("example.com"))

	for i := 0; i < 3; i++ {
		if _, err := repo.CreateRelationship(ctx, ns, domain.RelKnows, srv); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ok, _ := repo.FindRelationship(ctx, ns, srv, domain.RelKnows)
	if !ok {
		t.Error("expected relationship to exist")
	}
	ok, _ = repo.FindRelationship(ctx, srv, ns, domain.RelKnows)
	if ok {
		t.Error("expected reverse relationship to be absent")
	}

	frag, _ := repo.ExportFragment(ctx)
	if len(frag.Edges) != 1 {
		t.Errorf("expected 1 edge, got %d", len(frag.Edges))
	}

	ghost := domain.NewNode(domain.LabelCompany, "Ghost")
	if _, err := repo.CreateRelationship(ctx, srv, domain.RelHostedBy, ghost); err == nil {
		t.Error("expected error for unknown endpoint")
	}
}
