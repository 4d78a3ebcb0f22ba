package frontmatter

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecode_RecognizedKeys(t *testing.T) {
	raw := []byte(`---
title: Combat
slug: combat
parent: mechanics
category: rules
order: 3
status: published
author: gabe
editor: kai
---

Swing weapon at target.
`)

	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if meta.Title != "Combat" {
		t.Errorf("Title = %q, want %q", meta.Title, "Combat")
	}
	if meta.Slug != "combat" {
		t.Errorf("Slug = %q, want %q", meta.Slug, "combat")
	}
	if meta.Parent != "mechanics" {
		t.Errorf("Parent = %q, want %q", meta.Parent, "mechanics")
	}
	if meta.Category != "rules" {
		t.Errorf("Category = %q, want %q", meta.Category, "rules")
	}
	if meta.Order != 3 {
		t.Errorf("Order = %d, want 3", meta.Order)
	}
	if meta.Status != "published" {
		t.Errorf("Status = %q, want %q", meta.Status, "published")
	}
	if meta.Author != "gabe" || meta.Editor != "kai" {
		t.Errorf("Author/Editor = %q/%q, want gabe/kai", meta.Author, meta.Editor)
	}
	if len(meta.Extra) != 0 {
		t.Errorf("Extra = %v, want empty", meta.Extra)
	}
	if body != "Swing weapon at target.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestDecode_CustomKeysPreserved(t *testing.T) {
	raw := []byte(`---
title: Combat
slug: combat
icon: sword
tags:
  - pvp
  - melee
difficulty: 7
---
Body.
`)

	meta, _, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	keys := make([]string, len(meta.Extra))
	for i, f := range meta.Extra {
		keys[i] = f.Key
	}
	want := []string{"icon", "tags", "difficulty"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Extra keys = %v, want %v (document order)", keys, want)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no block", "just a body\n"},
		{"unterminated", "---\ntitle: Combat\n"},
		{"bad yaml", "---\ntitle: [unclosed\n---\nbody\n"},
		{"non-mapping", "---\n- a\n- b\n---\nbody\n"},
		{"order not a number", "---\norder: soon\n---\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformedMetadata) {
				t.Errorf("error %v is not ErrMalformedMetadata", err)
			}
		})
	}
}

func TestDecode_CRLF(t *testing.T) {
	raw := []byte("---\r\ntitle: Combat\r\nslug: combat\r\n---\r\nBody.\r\n")
	meta, body, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed on CRLF input: %v", err)
	}
	if meta.Title != "Combat" {
		t.Errorf("Title = %q", meta.Title)
	}
	if !strings.Contains(body, "Body.") {
		t.Errorf("body = %q", body)
	}
}

func TestRoundTrip_MetadataExact(t *testing.T) {
	raw := []byte(`---
title: Combat
slug: combat
parent: mechanics
category: rules
order: 2
status: draft
author: gabe
icon: sword
stats:
  hp: 10
  mp: 4
aliases: [fight, battle]
---

Swing weapon at target.
`)

	meta1, body1, err := Decode(raw)
	if err != nil {
		t.Fatalf("first Decode failed: %v", err)
	}

	encoded, err := Encode(meta1, body1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	meta2, body2, err := Decode(encoded)
	if err != nil {
		t.Fatalf("second Decode failed: %v\nencoded:\n%s", err, encoded)
	}

	if meta1.Title != meta2.Title || meta1.Slug != meta2.Slug ||
		meta1.Parent != meta2.Parent || meta1.Category != meta2.Category ||
		meta1.Order != meta2.Order || meta1.Status != meta2.Status ||
		meta1.Author != meta2.Author || meta1.Editor != meta2.Editor {
		t.Errorf("recognized fields did not round-trip:\nfirst:  %+v\nsecond: %+v", meta1, meta2)
	}

	if len(meta1.Extra) != len(meta2.Extra) {
		t.Fatalf("Extra count changed: %d -> %d", len(meta1.Extra), len(meta2.Extra))
	}
	for i := range meta1.Extra {
		if meta1.Extra[i].Key != meta2.Extra[i].Key {
			t.Errorf("Extra[%d] key changed: %q -> %q", i, meta1.Extra[i].Key, meta2.Extra[i].Key)
		}
	}

	// Custom structured values survive: re-decode into a generic shape.
	var stats1, stats2 map[string]int
	for _, f := range meta1.Extra {
		if f.Key == "stats" {
			if err := f.Value.Decode(&stats1); err != nil {
				t.Fatalf("decode stats from first pass: %v", err)
			}
		}
	}
	for _, f := range meta2.Extra {
		if f.Key == "stats" {
			if err := f.Value.Decode(&stats2); err != nil {
				t.Fatalf("decode stats from second pass: %v", err)
			}
		}
	}
	if !reflect.DeepEqual(stats1, stats2) {
		t.Errorf("custom structured value changed: %v -> %v", stats1, stats2)
	}

	if strings.TrimRight(body1, "\n") != strings.TrimRight(body2, "\n") {
		t.Errorf("body changed:\nfirst:  %q\nsecond: %q", body1, body2)
	}
}

func TestEncode_EmptyMetadata(t *testing.T) {
	out, err := Encode(&Metadata{}, "body only\n")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	meta, body, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode of encoded output failed: %v", err)
	}
	if meta.Title != "" || len(meta.Extra) != 0 {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
	if body != "body only\n" {
		t.Errorf("body = %q", body)
	}
}

func TestEncode_ZeroOrderOmitted(t *testing.T) {
	out, err := Encode(&Metadata{Title: "Combat", Slug: "combat"}, "")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(string(out), "order:") {
		t.Errorf("zero order should be omitted, got:\n%s", out)
	}
}
