/*
Copyright © 2025 SUSE LLC
SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mock

import (
	"io/fs"
	"os"
	"syscall"

	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/suse/tukit/pkg/sys/vfs"
)

// TestFS creates a temporary filesystem populated with the given fixtures.
// The returned cleanup function removes the backing temporary directory.
func TestFS(fixtures any) (vfs.FS, func(), error) {
	if fixtures == nil {
		fixtures = map[string]any{}
	}
	return vfst.NewTestFS(fixtures)
}

// ReadOnlyTestFS wraps the given filesystem so any mutating operation fails
// with a permission error.
func ReadOnlyTestFS(fsys vfs.FS) (vfs.FS, error) {
	return &roFS{fsys: fsys}, nil
}

type roFS struct {
	fsys vfs.FS
}

func roErr(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: syscall.EPERM}
}

func (f roFS) Chmod(name string, _ fs.FileMode) error {
	return roErr("Chmod", name)
}

func (f roFS) Create(name string) (*os.File, error) {
	return nil, roErr("Create", name)
}

func (f roFS) Link(oldname, _ string) error {
	return roErr("Link", oldname)
}

func (f roFS) Lstat(name string) (fs.FileInfo, error) {
	return f.fsys.Lstat(name)
}

func (f roFS) Mkdir(name string, _ fs.FileMode) error {
	return roErr("Mkdir", name)
}

func (f roFS) Open(name string) (fs.File, error) {
	return f.fsys.Open(name)
}

func (f roFS) OpenFile(name string, flag int, perm fs.FileMode) (*os.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, roErr("OpenFile", name)
	}
	return f.fsys.OpenFile(name, flag, perm)
}

func (f roFS) RawPath(name string) (string, error) {
	return f.fsys.RawPath(name)
}

func (f roFS) ReadDir(dirname string) ([]fs.DirEntry, error) {
	return f.fsys.ReadDir(dirname)
}

func (f roFS) ReadFile(filename string) ([]byte, error) {
	return f.fsys.ReadFile(filename)
}

func (f roFS) Readlink(name string) (string, error) {
	return f.fsys.Readlink(name)
}

func (f roFS) Remove(name string) error {
	return roErr("Remove", name)
}

func (f roFS) RemoveAll(name string) error {
	return roErr("RemoveAll", name)
}

func (f roFS) Rename(oldpath, _ string) error {
	return roErr("Rename", oldpath)
}

func (f roFS) Stat(name string) (fs.FileInfo, error) {
	return f.fsys.Stat(name)
}

func (f roFS) Symlink(oldname, _ string) error {
	return roErr("Symlink", oldname)
}

func (f roFS) WriteFile(filename string, _ []byte, _ fs.FileMode) error {
	return roErr("WriteFile", filename)
}
