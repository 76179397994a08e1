package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.Count != 1 {
		t.Errorf("Count = %v, want 1", c.Count)
	}
	if c.PurchaseBudget != 200*time.Millisecond {
		t.Errorf("PurchaseBudget = %v, want 200ms", c.PurchaseBudget)
	}
	if c.Concurrency != 4 {
		t.Errorf("Concurrency = %v, want 4", c.Concurrency)
	}
	if c.HQ {
		t.Error("HQ should default to false")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crafter.yaml")
	data := "count: 5\nhq: true\nhome_world: Gilgamesh\npurchase_budget: 50ms\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Count != 5 || !c.HQ || c.HomeWorld != "Gilgamesh" {
		t.Errorf("Load = %+v", c)
	}
	if c.PurchaseBudget != 50*time.Millisecond {
		t.Errorf("PurchaseBudget = %v, want 50ms", c.PurchaseBudget)
	}
	if c.Concurrency != 4 {
		t.Errorf("Concurrency = %v, want default 4", c.Concurrency)
	}
}

func TestLoad_MissingFileAndBadValues(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || c.Count != 1 {
		t.Errorf("Load(missing) = %+v, %v; want defaults", c, err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("count: 0\n"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load(count: 0) should fail validation")
	}

	os.WriteFile(path, []byte("count: [\n"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load(malformed) should fail")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CRAFTER_COUNT", "3")
	t.Setenv("CRAFTER_HQ", "true")
	t.Setenv("CRAFTER_PURCHASE_BUDGET", "1s")
	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Count != 3 || !c.HQ || c.PurchaseBudget != time.Second {
		t.Errorf("ApplyEnv = %+v", c)
	}

	t.Setenv("CRAFTER_COUNT", "many")
	if err := Default().ApplyEnv(); err == nil {
		t.Error("ApplyEnv(CRAFTER_COUNT=many) should fail")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	os.WriteFile(path, []byte("CRAFTER_TEST_DOTENV=yes\n"), 0o644)
	t.Cleanup(func() { os.Unsetenv("CRAFTER_TEST_DOTENV") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if os.Getenv("CRAFTER_TEST_DOTENV") != "yes" {
		t.Error("variable from env file not loaded")
	}
}
