package config

import (
	"os"
	"testing"
)

func unsetBuildEnv() {
	_ = os.Unsetenv("BOOKMARK_SERVER_BUILD_TARGET")
	_ = os.Unsetenv("BOOKMARK_SERVER_DB_DRIVER")
	_ = os.Unsetenv("BOOKMARK_SERVER_VECTOR_STORE")
	_ = os.Unsetenv("BOOKMARK_SERVER_SQLITE_PATH")
}

func TestResolveDefaultsCloudDev(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("BOOKMARK_SERVER_BUILD_TARGET", "cloud-dev")
	defer unsetBuildEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" || cfg.VectorStore != "weaviate" {
		t.Fatalf("unexpected mapping: %s %s", cfg.DBDriver, cfg.VectorStore)
	}
}

func TestResolveDefaultsOverride(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("BOOKMARK_SERVER_BUILD_TARGET", "local")
	_ = os.Setenv("BOOKMARK_SERVER_DB_DRIVER", "postgres")
	defer unsetBuildEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("override failed, got %s", cfg.DBDriver)
	}
	if cfg.SQLitePath != "" {
		t.Fatalf("sqlite path should stay empty for postgres, got %s", cfg.SQLitePath)
	}
}

func TestResolveDefaultsLocal(t *testing.T) {
	unsetBuildEnv()
	_ = os.Setenv("BOOKMARK_SERVER_BUILD_TARGET", "local")
	defer unsetBuildEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.VectorStore != "chromem" {
		t.Fatalf("unexpected mapping for local: %s %s", cfg.DBDriver, cfg.VectorStore)
	}
	if cfg.SQLitePath == "" {
		t.Fatalf("expected derived sqlite path for local target")
	}
}

func TestResolveDefaultsUnknownTarget(t *testing.T) {
	cfg := NewForTesting()
	cfg.BuildTarget = "mainframe"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for unknown build target")
	}
}

func TestResolveDefaultsUnknownVectorStore(t *testing.T) {
	cfg := NewForTesting()
	cfg.VectorStore = "pinecone"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for unknown vector store")
	}
}
