// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sinks

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"metricsd/internal/aggregator/core"
)

// ArchiveSink appends each flushed buffer as one JSON line to a local file.
// It is not a Sink (no TCP dispatch involved) — operators wire it directly
// into a Flusher's Publisher alongside Dispatcher.Dispatch when they want a
// local, replayable record of everything that was flushed.
type ArchiveSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewArchiveSink opens (or creates) path in append mode with a buffered
// writer. Call Close when done.
func NewArchiveSink(path string) (*ArchiveSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &ArchiveSink{f: f, w: bufio.NewWriterSize(f, 1<<20), path: path, lastFlush: time.Now()}, nil
}

// Append writes one FlushBuffer as a JSON line, flushing the buffer to disk
// at most every 100ms to bound data loss on crash without flushing on every
// call.
func (s *ArchiveSink) Append(fb core.FlushBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	if err := enc.Encode(&fb); err != nil {
		_ = s.w.Flush()
		_ = enc.Encode(&fb)
	}
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		_ = s.w.Flush()
		s.lastFlush = time.Now()
	}
}

// Flush forces buffered data to be written to disk.
func (s *ArchiveSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *ArchiveSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}

// ReadArchive reads an entire archive file back for replay or inspection.
func ReadArchive(path string) ([]core.FlushBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []core.FlushBuffer
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var fb core.FlushBuffer
		if err := json.Unmarshal(scanner.Bytes(), &fb); err == nil {
			out = append(out, fb)
		}
	}
	return out, scanner.Err()
}
