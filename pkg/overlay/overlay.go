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

package overlay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/suse/tukit/pkg/mount"
	"github.com/suse/tukit/pkg/rsync"
	"github.com/suse/tukit/pkg/sys"
	"github.com/suse/tukit/pkg/sys/vfs"
)

const etcDir = "etc"
const workDirName = "work-etc"

// Overlay manages the writable /etc layer of a single snapshot. Every
// snapshot owns an upper and a work directory below the overlay storage
// root, named after the snapshot id.
type Overlay struct {
	s         *sys.System
	uid       string
	storage   string
	upperDir  string
	workDir   string
	lowerDirs []string
}

// New returns an overlay handle for the given snapshot id. storage is
// the overlay storage root, usually /var/lib/overlay.
func New(s *sys.System, storage string, uid string) *Overlay {
	return &Overlay{
		s:        s,
		uid:      uid,
		storage:  storage,
		upperDir: filepath.Join(storage, uid, etcDir),
		workDir:  filepath.Join(storage, uid, workDirName),
	}
}

// UpperDir returns the overlay's upper directory path.
func (o *Overlay) UpperDir() string {
	return o.upperDir
}

// Create establishes the upper and work directories and computes the
// lower layer chain. The base snapshot's upper directory, when present,
// becomes the topmost lower layer so configuration changes stay visible
// across snapshots.
func (o *Overlay) Create(base string) error {
	fs := o.s.FS()
	if err := vfs.MkdirAll(fs, o.upperDir, vfs.DirPerm); err != nil {
		return fmt.Errorf("creating upper directory: %w", err)
	}
	if err := vfs.MkdirAll(fs, o.workDir, vfs.DirPerm); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}

	var lowers []string
	baseUpper := filepath.Join(o.storage, base, etcDir)
	if ok, _ := vfs.Exists(fs, baseUpper); ok && base != o.uid {
		lowers = append(lowers, baseUpper)
	}
	lowers = append(lowers, "/etc")
	o.lowerDirs = lowers
	return nil
}

// UpdateMountDirs rewrites the given mount entry to assemble this
// overlay. With a sysroot argument all layer paths are prefixed with it,
// producing the fstab form used by the initrd which mounts the root
// filesystem below the sysroot before pivoting into it.
func (o *Overlay) UpdateMountDirs(m *mount.Mount, sysroot ...string) {
	prefix := ""
	if len(sysroot) > 0 {
		prefix = sysroot[0]
	}

	lowers := make([]string, 0, len(o.lowerDirs))
	for _, l := range o.lowerDirs {
		lowers = append(lowers, prefix+l)
	}

	m.SetSource("overlay")
	m.SetType("overlay")
	m.SetOptions([]string{
		"lowerdir=" + strings.Join(lowers, ":"),
		"upperdir=" + prefix + o.upperDir,
		"workdir=" + prefix + o.workDir,
	})
}

// Sync replays the currently visible configuration state into the
// snapshot below root, so that changes done in the running system after
// the base snapshot was taken are not lost. The fstab is left alone, it
// is rewritten separately with the snapshot's own mount definitions.
func (o *Overlay) Sync(root string) error {
	target := filepath.Join(root, etcDir)
	if err := vfs.MkdirAll(o.s.FS(), target, vfs.DirPerm); err != nil {
		return fmt.Errorf("creating sync target: %w", err)
	}
	err := rsync.New(o.s).MirrorData("/etc", target, "/fstab")
	if err != nil {
		return fmt.Errorf("synchronizing /etc state: %w", err)
	}
	return nil
}
