package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobals_LoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("logLevel: warn\nopenapiFiles: [a.yaml]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	g := &Globals{Config: path, OpenAPI: []string{"b.yaml", "c.yaml"}, LogLevel: "debug"}
	cfg, err := g.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := strings.Join(cfg.OpenAPIFiles, ","); got != "b.yaml,c.yaml" {
		t.Fatalf("OpenAPIFiles = %s", got)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %s", cfg.LogLevel)
	}

	g.LogLevel = "loud"
	if _, err := g.load(); err == nil {
		t.Fatalf("expected invalid log level to be rejected")
	}
}

func TestGlobals_StoreWithPetstore(t *testing.T) {
	g := &Globals{Petstore: true}
	cfg, err := g.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	store := g.store(cfg, g.logger(cfg))
	cat, err := store.Rebuild(t.Context())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if cat.Len() == 0 || store.Current() != cat {
		t.Fatalf("expected the pet shop catalog to be published, got %d endpoints", cat.Len())
	}
	if _, err := cat.Find("/v1/pets/{petId}", "GET"); err != nil {
		t.Fatalf("Find: %v", err)
	}
}

func TestGlobals_EmptyStore(t *testing.T) {
	g := &Globals{}
	cfg, err := g.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cat, err := g.store(cfg, g.logger(cfg)).Rebuild(t.Context())
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if cat.Len() != 0 {
		t.Fatalf("Len = %d, want 0", cat.Len())
	}
}

func TestVersion(t *testing.T) {
	if v := Version(); !strings.Contains(v, strings.TrimSpace(embeddedVersion)) && !strings.HasPrefix(v, "v") {
		t.Fatalf("unexpected version %q", v)
	}
}
