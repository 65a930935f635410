// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command zkdbgd serves the Debug Adapter Protocol over TCP for CDF
// files: one session (one debugger, one cursor, one breakpoint set) per
// accepted connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	"github.com/codx-dev/zkdbg/dap"
)

// config is the daemon's on-disk shape, loaded with sigs.k8s.io/yaml
// (decodes YAML by converting it to JSON first), the same dual
// JSON/YAML convention db.Definition uses for its own definitions —
// hence json, not yaml, struct tags.
type config struct {
	Listen   string `json:"listen"`
	CDFDir   string `json:"cdfDir"`
	LogLevel string `json:"logLevel"`
}

func loadConfig(path string) (config, error) {
	cfg := config{Listen: "127.0.0.1:0"}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:0"
	}
	return cfg, nil
}

func main() {
	fs := flag.NewFlagSet("zkdbgd", flag.ExitOnError)
	listen := fs.String("l", "", "listen address (default 127.0.0.1:0, or the config file's value)")
	cdfDir := fs.String("f", "", "CDF directory, stored in the server config; initialize opens its adapterId path as given and does not resolve it against this directory")
	breakpoints := fs.String("breakpoints", "", "optional YAML breakpoint preset file, pre-loaded for every session")
	configPath := fs.String("config", "", "optional YAML daemon config file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *cdfDir != "" {
		cfg.CDFDir = *cdfDir
	}

	srv := &server{
		logger:      logger,
		cdfDir:      cfg.CDFDir,
		breakpoints: *breakpoints,
	}

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		logger.Printf("zkdbgd listening on %v", l.Addr())
		if err := srv.serve(l); err != nil {
			select {
			case <-done:
			default:
				logger.Fatal(err)
			}
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.shutdown(ctx, l)
}

type server struct {
	logger      *log.Logger
	cdfDir      string
	breakpoints string

	mu       sync.Mutex
	sessions map[uuid.UUID]*dap.Session
}

// serve accepts connections from l in a loop and launches a goroutine
// per accepted connection, exactly as tenant.Manager.Serve spawns
// go m.handleRemote(conn) for each accepted remote connection.
func (s *server) serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		id := uuid.New()
		go s.handle(conn, id)
	}
}

func (s *server) handle(conn net.Conn, id uuid.UUID) {
	defer conn.Close()

	session := dap.NewSession(id, conn, s.logger)
	session.PresetPath = s.breakpoints

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[uuid.UUID]*dap.Session)
	}
	s.sessions[id] = session
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}()

	s.logger.Printf("dap[%s]: session started from %s", id, conn.RemoteAddr())
	if err := session.Serve(); err != nil {
		s.logger.Printf("dap[%s]: session ended: %v", id, err)
	}
}

func (s *server) shutdown(ctx context.Context, l net.Listener) {
	l.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		n := len(s.sessions)
		s.mu.Unlock()
		if n == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
