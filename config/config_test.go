package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/pngme/snapshot"
	"xdao.co/pngme/snapshot/localfs"
	"xdao.co/pngme/snapshot/testkit"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadEmptyPathWithoutEnv(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Snapshots.Backends) != 0 {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
	store, closeFn, err := cfg.Snapshots.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if store != nil {
		t.Fatalf("expected nil store without backends")
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `{"snapshots":{"backends":[{"name":"localfs","dir":"`+filepath.ToSlash(dir)+`"}]}}`)
	t.Setenv(EnvPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Snapshots.Backends[0].Dir; got != filepath.ToSlash(dir) {
		t.Fatalf("Dir: got %q", got)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"malformed json":   `{"snapshots":`,
		"missing name":     `{"snapshots":{"backends":[{"dir":"/tmp/x"}]}}`,
		"unknown backend":  `{"snapshots":{"backends":[{"name":"ipfs"}]}}`,
		"localfs no dir":   `{"snapshots":{"backends":[{"name":"localfs"}]}}`,
		"grpc no addr":     `{"snapshots":{"backends":[{"name":"grpc"}]}}`,
		"grpc bad timeout": `{"snapshots":{"backends":[{"name":"grpc","addr":"x:1","timeout":"soon"}]}}`,
		"duplicate ids":    `{"snapshots":{"backends":[{"name":"localfs","dir":"/a"},{"name":"localfs","dir":"/b"}]}}`,
		"bad write policy": `{"snapshots":{"write_policy":"some","backends":[{"name":"localfs","dir":"/a"}]}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := LoadFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestOpenSingleLocalfs(t *testing.T) {
	s := Snapshots{Backends: []Backend{{Name: "localfs", Dir: t.TempDir()}}}
	store, closeFn, err := s.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*localfs.Store); !ok {
		t.Fatalf("expected *localfs.Store, got %T", store)
	}
	if _, err := store.Put(testkit.SamplePNG("config")); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestOpenSeveralBackends(t *testing.T) {
	s := Snapshots{
		WritePolicy: "all",
		Backends: []Backend{
			{Name: "localfs", ID: "a", Dir: t.TempDir()},
			{Name: "localfs", ID: "b", Dir: t.TempDir()},
		},
	}
	store, closeFn, err := s.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	m, ok := store.(snapshot.Multi)
	if !ok {
		t.Fatalf("expected snapshot.Multi, got %T", store)
	}
	if !m.WriteAll || len(m.Stores) != 2 || m.Stores[0].Name != "a" {
		t.Fatalf("unexpected Multi: %+v", m)
	}
}

func TestWithLocalDir(t *testing.T) {
	s := Snapshots{Backends: []Backend{
		{Name: "localfs", Dir: "/configured"},
		{Name: "grpc", Addr: "127.0.0.1:7788"},
	}}
	got := s.WithLocalDir("/override")
	if len(got.Backends) != 2 {
		t.Fatalf("expected 2 backends, got %+v", got.Backends)
	}
	if got.Backends[0].Dir != "/override" || got.Backends[1].Name != "grpc" {
		t.Fatalf("unexpected backends: %+v", got.Backends)
	}
	if s.Backends[0].Dir != "/configured" {
		t.Fatalf("WithLocalDir modified the receiver")
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestOpenReportsBackendErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// A regular file cannot be used as a store root.
	s := Snapshots{Backends: []Backend{{Name: "localfs", Dir: filepath.Join(file, "sub")}}}
	_, closeFn, err := s.Open()
	if err == nil || !strings.Contains(err.Error(), `backend "localfs"`) {
		t.Fatalf("got %v, want error naming the backend", err)
	}
	if closeFn == nil {
		t.Fatalf("close function must never be nil")
	}
}
