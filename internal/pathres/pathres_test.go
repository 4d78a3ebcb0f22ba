package pathres

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		category string
		chain    []string
		slug     string
		want     string
	}{
		{"root page", "", nil, "combat", "combat.md"},
		{"category only", "rules", nil, "combat", filepath.Join("rules", "combat.md")},
		{"nested", "rules", []string{"mechanics", "actions"}, "combat",
			filepath.Join("rules", "mechanics", "actions", "combat.md")},
		{"chain without category", "", []string{"mechanics"}, "combat",
			filepath.Join("mechanics", "combat.md")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.category, tt.chain, tt.slug)
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	first := Resolve("rules", []string{"mechanics"}, "combat")
	second := Resolve("rules", []string{"mechanics"}, "combat")
	if first != second {
		t.Errorf("Resolve is not idempotent: %q != %q", first, second)
	}
}

// fakeHierarchy maps id -> (slug, parentID) for chain walking tests.
type fakeHierarchy map[string][2]string

func (f fakeHierarchy) SlugAndParent(_ context.Context, id string) (string, string, error) {
	entry, ok := f[id]
	if !ok {
		return "", "", fmt.Errorf("no such page: %s", id)
	}
	return entry[0], entry[1], nil
}

func TestChainFor(t *testing.T) {
	h := fakeHierarchy{
		"id-actions":   {"actions", "id-mechanics"},
		"id-mechanics": {"mechanics", ""},
	}

	chain, err := ChainFor(context.Background(), h, "id-actions")
	if err != nil {
		t.Fatalf("ChainFor failed: %v", err)
	}

	want := []string{"mechanics", "actions"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q (root first)", i, chain[i], want[i])
		}
	}
}

func TestChainFor_Empty(t *testing.T) {
	chain, err := ChainFor(context.Background(), fakeHierarchy{}, "")
	if err != nil {
		t.Fatalf("ChainFor failed: %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("chain = %v, want empty", chain)
	}
}

func TestChainFor_Cycle(t *testing.T) {
	h := fakeHierarchy{
		"id-a": {"a", "id-b"},
		"id-b": {"b", "id-a"},
	}

	_, err := ChainFor(context.Background(), h, "id-a")
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !errors.Is(err, ErrCyclicHierarchy) {
		t.Errorf("error %v is not ErrCyclicHierarchy", err)
	}
}

func TestChainFor_SelfCycle(t *testing.T) {
	h := fakeHierarchy{"id-a": {"a", "id-a"}}

	if _, err := ChainFor(context.Background(), h, "id-a"); !errors.Is(err, ErrCyclicHierarchy) {
		t.Errorf("self-referencing parent should be ErrCyclicHierarchy, got %v", err)
	}
}
