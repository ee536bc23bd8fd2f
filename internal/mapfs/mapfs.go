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
// Package mapfs is an in-memory kiln file system for tests. It records
// every write so tests can assert what a build put on disk.
package mapfs

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// MapFileSystem implements kiln's fs.FileSystem on top of fstest.MapFS.
// Names are absolute slash paths; directories are explicit entries, so a
// walk never sees placeholder files.
type MapFileSystem struct {
	mu      sync.RWMutex
	mapFS   fstest.MapFS
	modTime time.Time
	writes  []string
}

// New creates an empty file system.
func New() *MapFileSystem {
	return &MapFileSystem{
		mapFS:   make(fstest.MapFS),
		modTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile puts a file in place without recording a write, creating its
// parent directories.
func (mfs *MapFileSystem) AddFile(name string, content string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	name = mfs.cleanPath(name)
	mfs.mkdirAllLocked(path.Dir(name), 0755)
	mfs.putLocked(name, []byte(content), mode)
}

// AddFiles adds every file in files below root.
func (mfs *MapFileSystem) AddFiles(root string, files map[string]string) {
	for name, content := range files {
		mfs.AddFile(path.Join(root, name), content, 0644)
	}
}

// WriteFile implements FileSystem. The parent directory must exist.
func (mfs *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := mfs.cleanPath(name)
	if dir := path.Dir(clean); dir != "." {
		parent, ok := mfs.mapFS[dir]
		if !ok {
			return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		if !parent.Mode.IsDir() {
			return &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("not a directory")}
		}
	}
	if f, ok := mfs.mapFS[clean]; ok && f.Mode.IsDir() {
		return &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("is a directory")}
	}

	mfs.putLocked(clean, append([]byte(nil), data...), perm)
	mfs.writes = append(mfs.writes, "/"+clean)
	return nil
}

// Writes returns the names passed to WriteFile, in call order.
func (mfs *MapFileSystem) Writes() []string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return slices.Clone(mfs.writes)
}

// ResetWrites forgets recorded writes.
func (mfs *MapFileSystem) ResetWrites() {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.writes = nil
}

// ReadFile implements FileSystem.
func (mfs *MapFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return fs.ReadFile(mfs.mapFS, mfs.cleanPath(name))
}

// Remove implements FileSystem. Like os.Remove it refuses directories
// that still hold entries.
func (mfs *MapFileSystem) Remove(name string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := mfs.cleanPath(name)
	f, ok := mfs.mapFS[clean]
	if !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	if f.Mode.IsDir() {
		for p := range mfs.mapFS {
			if strings.HasPrefix(p, clean+"/") {
				return &fs.PathError{Op: "remove", Path: name, Err: fmt.Errorf("directory not empty")}
			}
		}
	}
	delete(mfs.mapFS, clean)
	return nil
}

// MkdirAll implements FileSystem.
func (mfs *MapFileSystem) MkdirAll(name string, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := mfs.cleanPath(name)
	for dir := clean; dir != "."; dir = path.Dir(dir) {
		if f, ok := mfs.mapFS[dir]; ok && !f.Mode.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: name, Err: fmt.Errorf("not a directory")}
		}
	}
	mfs.mkdirAllLocked(clean, perm)
	return nil
}

// Stat implements FileSystem.
func (mfs *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return fs.Stat(mfs.mapFS, mfs.cleanPath(name))
}

// Exists implements FileSystem.
func (mfs *MapFileSystem) Exists(name string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	if _, ok := mfs.mapFS[clean]; ok {
		return true
	}
	// fstest.MapFS synthesizes directories for entries below them
	for p := range mfs.mapFS {
		if strings.HasPrefix(p, clean+"/") {
			return true
		}
	}
	return false
}

// ReadDir implements FileSystem.
func (mfs *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return fs.ReadDir(mfs.mapFS, mfs.cleanPath(name))
}

// Open implements FileSystem.
func (mfs *MapFileSystem) Open(name string) (fs.File, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return mfs.mapFS.Open(mfs.cleanPath(name))
}

func (mfs *MapFileSystem) putLocked(name string, data []byte, mode fs.FileMode) {
	mfs.mapFS[name] = &fstest.MapFile{
		Data:    data,
		Mode:    mode.Perm(),
		ModTime: mfs.modTime,
	}
}

func (mfs *MapFileSystem) mkdirAllLocked(dir string, perm fs.FileMode) {
	for ; dir != "."; dir = path.Dir(dir) {
		if _, ok := mfs.mapFS[dir]; ok {
			return
		}
		mfs.mapFS[dir] = &fstest.MapFile{
			Mode:    fs.ModeDir | perm.Perm(),
			ModTime: mfs.modTime,
		}
	}
}

// cleanPath maps an absolute name to its MapFS key, which has no leading
// slash. The root is ".".
func (mfs *MapFileSystem) cleanPath(p string) string {
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "."
	}
	return strings.TrimPrefix(cleaned, "/")
}
