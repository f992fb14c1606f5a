package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePrincipalsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "principals.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write principals file: %v", err)
	}
	return path
}

func TestLoadPrincipals(t *testing.T) {
	path := writePrincipalsFile(t, `
principals:
  - name: Dan
    colour: red
  - name: Fred
    colour: green
  - name: Theo
`)

	principals, err := LoadPrincipals(path)
	if err != nil {
		t.Fatalf("LoadPrincipals failed: %v", err)
	}

	if len(principals) != 3 {
		t.Fatalf("got %d principals, want 3", len(principals))
	}
	if principals[0].Name != "Dan" || principals[0].Colour != "red" {
		t.Errorf("first principal = %+v, want Dan/red", principals[0])
	}
	if principals[2].Colour != "" {
		t.Errorf("colour should be optional, got %q", principals[2].Colour)
	}
}

func TestLoadPrincipalsRejectsDuplicates(t *testing.T) {
	path := writePrincipalsFile(t, `
principals:
  - name: Dan
  - name: Dan
`)

	if _, err := LoadPrincipals(path); err == nil {
		t.Fatal("expected error for duplicate principal names")
	}
}

func TestLoadPrincipalsRejectsEmptyName(t *testing.T) {
	path := writePrincipalsFile(t, `
principals:
  - colour: red
`)

	if _, err := LoadPrincipals(path); err == nil {
		t.Fatal("expected error for empty principal name")
	}
}

func TestPrincipalNames(t *testing.T) {
	cfg := Config{Principals: []Principal{{Name: "Dan"}, {Name: "Fred"}}}
	names := cfg.PrincipalNames()
	if len(names) != 2 || names[0] != "Dan" || names[1] != "Fred" {
		t.Errorf("PrincipalNames() = %v", names)
	}
}
