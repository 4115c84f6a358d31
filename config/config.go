// Package config loads the pngme configuration file.
//
// Example:
//
//	{
//	  "snapshots": {
//	    "write_policy": "all",
//	    "backends": [
//	      {"name": "localfs", "dir": "/home/me/.pngme/snapshots"},
//	      {"name": "grpc", "id": "shared", "addr": "127.0.0.1:7788", "timeout": "2s"}
//	    ]
//	  }
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"xdao.co/pngme/snapshot"
	"xdao.co/pngme/snapshot/grpcstore"
	"xdao.co/pngme/snapshot/localfs"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "PNGME_CONFIG"

type Config struct {
	Snapshots Snapshots `json:"snapshots"`
}

// Snapshots selects where pre-write snapshots go.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write to all backends and require CID equality
type Snapshots struct {
	WritePolicy string    `json:"write_policy,omitempty"`
	Backends    []Backend `json:"backends,omitempty"`
}

type Backend struct {
	// Name is the backend kind: "localfs" or "grpc".
	Name string `json:"name"`
	// ID is an optional stable alias; if empty, Name is used.
	ID string `json:"id,omitempty"`

	// Dir is the localfs root.
	Dir string `json:"dir,omitempty"`

	// Addr is the grpc target; Timeout applies to dial and each call.
	Addr    string `json:"addr,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

func (b Backend) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Load reads the file at path, falling back to $PNGME_CONFIG.
// With neither set it returns the zero Config.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	return c.Snapshots.Validate()
}

func (s Snapshots) Validate() error {
	seen := make(map[string]struct{}, len(s.Backends))
	for _, b := range s.Backends {
		switch b.Name {
		case "localfs":
			if b.Dir == "" {
				return fmt.Errorf("config: localfs backend %q requires dir", b.id())
			}
		case "grpc":
			if b.Addr == "" {
				return fmt.Errorf("config: grpc backend %q requires addr", b.id())
			}
			if b.Timeout != "" {
				if _, err := time.ParseDuration(b.Timeout); err != nil {
					return fmt.Errorf("config: grpc backend %q: invalid timeout: %w", b.id(), err)
				}
			}
		case "":
			return errors.New("config: backend name is required")
		default:
			return fmt.Errorf("config: unknown backend %q", b.Name)
		}
		if _, ok := seen[b.id()]; ok {
			return fmt.Errorf("config: duplicate backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	switch s.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("config: invalid write_policy %q", s.WritePolicy)
	}
}

// WithLocalDir returns a copy whose first backend is a localfs store at dir,
// replacing any configured localfs backend with the same id.
func (s Snapshots) WithLocalDir(dir string) Snapshots {
	out := Snapshots{WritePolicy: s.WritePolicy}
	out.Backends = append(out.Backends, Backend{Name: "localfs", Dir: dir})
	for _, b := range s.Backends {
		if b.id() == "localfs" {
			continue
		}
		out.Backends = append(out.Backends, b)
	}
	return out
}

// Open opens the configured snapshot store.
//
// It returns a nil Store when no backends are configured. The returned close
// function is never nil.
func (s Snapshots) Open() (snapshot.Store, func() error, error) {
	noop := func() error { return nil }
	if err := s.Validate(); err != nil {
		return nil, noop, err
	}
	if len(s.Backends) == 0 {
		return nil, noop, nil
	}

	named := make([]snapshot.Named, 0, len(s.Backends))
	closers := make([]func() error, 0, len(s.Backends))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range s.Backends {
		store, closeFn, err := openBackend(b)
		if err != nil {
			_ = closeAll()
			return nil, noop, fmt.Errorf("config: open backend %q: %w", b.id(), err)
		}
		named = append(named, snapshot.Named{Name: b.id(), Store: store})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	return snapshot.Multi{Stores: named, WriteAll: s.WritePolicy == "all"}, closeAll, nil
}

func openBackend(b Backend) (snapshot.Store, func() error, error) {
	switch b.Name {
	case "localfs":
		store, err := localfs.New(b.Dir)
		return store, nil, err
	case "grpc":
		var timeout time.Duration
		if b.Timeout != "" {
			timeout, _ = time.ParseDuration(b.Timeout)
		}
		client, err := grpcstore.Dial(b.Addr, grpcstore.WithTimeout(timeout))
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", b.Name)
	}
}
