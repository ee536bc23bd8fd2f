/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package service runs compile-on-save for one TypeScript project: it keeps
// a project host and its incremental builder in step with edits and writes
// what each edit affects.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/project"
	"bennypowers.dev/kiln/watch"
)

// Options configures a Service.
type Options struct {
	Project project.Options
	// Observer receives builder counters. Nil discards them.
	Observer builder.Observer
	// Sink writes artifacts. Nil writes them to the project file system.
	Sink   builder.Sink
	Logger *slog.Logger
}

// Service is a compile-on-save session. Its methods may be called from
// several goroutines; calls are serialized.
type Service struct {
	mu      sync.Mutex
	project *project.Project
	builder *builder.Builder
	sink    builder.Sink
	logger  *slog.Logger
}

// BuildResult lists the files a full build wrote.
type BuildResult struct {
	Emitted []builder.Path
}

// SaveResult is the outcome of compile-on-save for one file.
type SaveResult struct {
	Path builder.Path
	builder.AffectedResult
}

// Report is the outcome of applying one batch of changes.
type Report struct {
	// Removed lists files that left the project.
	Removed []builder.Path
	// Saves holds one entry per changed file still in the project.
	Saves []SaveResult
}

// Emitted returns every file written while applying the batch.
func (r Report) Emitted() []builder.Path {
	var out []builder.Path
	for _, s := range r.Saves {
		out = append(out, s.Emitted...)
	}
	return out
}

// Open loads the project at configPath and prepares a builder for it.
func Open(ctx context.Context, fsys fs.FileSystem, configPath string, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Project.Logger == nil {
		opts.Project.Logger = logger
	}
	p, err := project.Load(ctx, fsys, configPath, opts.Project)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	sink := opts.Sink
	if sink == nil {
		sink = project.WriteSink(fsys)
	}

	b := builder.New(p, logger).WithObserver(opts.Observer)
	b.OnProjectUpdateGraph()
	logger.Debug("builder ready", "strategy", b.Strategy(), "files", len(p.FileNames()))
	return &Service{
		project: p,
		builder: b,
		sink:    sink,
		logger:  logger,
	}, nil
}

// Config returns the project configuration.
func (s *Service) Config() *project.Config {
	return s.project.Config()
}

// Strategy names the builder strategy in use.
func (s *Service) Strategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Strategy()
}

// Files lists the project's files.
func (s *Service) Files() []builder.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.FileNames()
}

// Path returns the identity of a file name.
func (s *Service) Path(name string) builder.Path {
	return s.project.Path(name)
}

// BuildAll emits every file edited since its last emit. Running it twice in a
// row writes nothing the second time. Sink failures are joined; the files
// that failed are retried by the next build.
func (s *Service) BuildAll() (BuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emitted, err := s.builder.EmitFiles(s.project.FileNames(), s.sink, false)
	res := BuildResult{Emitted: emitted}
	s.logger.Info("build finished", "emitted", len(res.Emitted), "failed", err != nil)
	return res, err
}

// Affected returns the files an edit of name affects, without emitting.
func (s *Service) Affected(name string) ([]builder.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.FilesAffectedBy(s.project.Path(name))
}

// Save re-reads name and emits the files the edit affects. It returns
// builder.ErrNotTracked when name is not, or no longer, part of the project.
func (s *Service) Save(ctx context.Context, name string) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.project.Refresh(ctx, name); err != nil {
		return SaveResult{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return s.save(s.project.Path(name))
}

func (s *Service) save(pth builder.Path) (SaveResult, error) {
	res, err := s.builder.EmitAffected(pth, s.sink)
	s.logger.Debug("compile on save",
		"file", pth,
		"affected", len(res.Affected),
		"emitted", len(res.Emitted),
		"shapeChanged", res.ShapeChanged)
	return SaveResult{Path: pth, AffectedResult: res}, err
}

// Apply brings the project in line with one batch of changes, then runs
// compile-on-save for every changed file still in the project. Files that
// do not belong to the project are skipped.
func (s *Service) Apply(ctx context.Context, changes []watch.Change) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report
	var errs []error
	var edited []builder.Path
	for _, c := range changes {
		pth := s.project.Path(c.Path)
		tracked := s.builder.Tracked(pth)
		changed, err := s.project.Refresh(ctx, c.Path)
		if err != nil {
			if ctx.Err() != nil {
				return report, err
			}
			errs = append(errs, fmt.Errorf("reading %s: %w", c.Path, err))
			continue
		}
		if !changed {
			continue
		}
		if _, still := s.project.Name(pth); !still {
			if tracked {
				report.Removed = append(report.Removed, pth)
			}
			continue
		}
		edited = append(edited, pth)
	}

	// one graph update and one emit pass for the whole batch
	s.builder.OnProjectUpdateGraph()
	results, err := s.builder.EmitAffectedAll(edited, s.sink)
	if err != nil {
		errs = append(errs, err)
	}
	for _, res := range results {
		s.logger.Debug("compile on save",
			"file", res.Trigger,
			"affected", len(res.Affected),
			"emitted", len(res.Emitted),
			"shapeChanged", res.ShapeChanged)
		report.Saves = append(report.Saves, SaveResult{Path: res.Trigger, AffectedResult: res})
	}
	return report, errors.Join(errs...)
}
