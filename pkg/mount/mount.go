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

package mount

import (
	"errors"
	"fmt"

	"github.com/suse/tukit/pkg/fstab"
	"github.com/suse/tukit/pkg/sys"
	"github.com/suse/tukit/pkg/sys/vfs"
)

type kind int

const (
	plain kind = iota
	bind
)

// Mount describes a single mount point and how to actuate it under a
// target root. Two kinds share the same contract: plain mounts with a
// configurable filesystem type and source, and recursive bind mounts.
type Mount struct {
	s          *sys.System
	kind       kind
	target     string
	source     string
	fsType     string
	options    []string
	mountPoint string
}

// New returns a plain mount entry for the given target path
func New(s *sys.System, target string) *Mount {
	return &Mount{s: s, kind: plain, target: target}
}

// NewBind returns a recursive bind mount entry for the given target path.
// The bind source defaults to the target itself on the host, extra mount
// options may be appended.
func NewBind(s *sys.System, target string, options ...string) *Mount {
	return &Mount{s: s, kind: bind, target: target, source: target, options: options}
}

func (m Mount) Target() string {
	return m.target
}

func (m Mount) Source() string {
	return m.source
}

func (m Mount) Type() string {
	if m.kind == bind {
		return "none"
	}
	return m.fsType
}

func (m Mount) Options() []string {
	return m.options
}

func (m *Mount) SetSource(source string) {
	m.source = source
}

func (m *Mount) SetType(fsType string) {
	m.fsType = fsType
}

func (m *Mount) SetOptions(options []string) {
	m.options = options
}

// IsMount checks if the target path is currently mounted on the host
func (m Mount) IsMount() (bool, error) {
	mnt, err := m.s.Mounter().GetMountPoint(m.target)
	if err != nil {
		return false, fmt.Errorf("reading mount table for '%s': %w", m.target, err)
	}
	return mnt != nil, nil
}

// GetFS returns the filesystem type the target path is currently mounted
// with on the host, empty if not mounted
func (m Mount) GetFS() (string, error) {
	mnt, err := m.s.Mounter().GetMountPoint(m.target)
	if err != nil {
		return "", fmt.Errorf("reading mount table for '%s': %w", m.target, err)
	}
	if mnt == nil {
		return "", nil
	}
	return mnt.Type, nil
}

// Mount actuates the entry under the given root. An empty root actuates
// the entry at its plain target path.
func (m *Mount) Mount(root string) error {
	if m.mountPoint != "" {
		return fmt.Errorf("'%s' is already mounted at '%s'", m.target, m.mountPoint)
	}
	mountPoint := vfs.SanitizedJoin(root, m.target)

	err := vfs.MkdirAll(m.s.FS(), mountPoint, vfs.DirPerm)
	if err != nil {
		return fmt.Errorf("creating mount point '%s': %w", mountPoint, err)
	}

	source := m.source
	fsType := m.fsType
	options := m.options
	if m.kind == bind {
		fsType = ""
		options = append([]string{"rbind"}, m.options...)
	}

	m.s.Logger().Debug("Mounting '%s' at '%s'", source, mountPoint)
	err = m.s.Mounter().Mount(source, mountPoint, fsType, options)
	if err != nil {
		return fmt.Errorf("mounting '%s' at '%s': %w", source, mountPoint, err)
	}
	m.mountPoint = mountPoint
	return nil
}

// Unmount releases an actuated entry, it is a no-op for entries never mounted
func (m *Mount) Unmount() error {
	if m.mountPoint == "" {
		return nil
	}
	m.s.Logger().Debug("Unmounting '%s'", m.mountPoint)
	err := m.s.Mounter().Unmount(m.mountPoint)
	if err != nil {
		return fmt.Errorf("unmounting '%s': %w", m.mountPoint, err)
	}
	m.mountPoint = ""
	return nil
}

// Persist writes the entry in fstab format to the given file, replacing a
// previous line for the same mount point if present
func (m Mount) Persist(fstabFile string) error {
	line := fstab.Line{
		Device:     m.source,
		MountPoint: m.target,
		FileSystem: m.fsType,
		Options:    m.options,
	}
	if m.kind == bind {
		line.FileSystem = "none"
		line.Options = append([]string{"bind"}, m.options...)
	}
	if len(line.Options) == 0 {
		line.Options = []string{"defaults"}
	}
	return fstab.Set(m.s, fstabFile, line)
}

// List is an ordered collection of mount entries. Actuation walks the
// list in insertion order, teardown walks it in reverse so nested mount
// points are released before their parents.
type List struct {
	s       *sys.System
	entries []*Mount
}

func NewList(s *sys.System) *List {
	return &List{s: s}
}

func (l *List) Add(m *Mount) {
	l.entries = append(l.entries, m)
}

func (l List) Entries() []*Mount {
	return l.entries
}

// MountAll actuates every entry, in order, under the given root
func (l List) MountAll(root string) error {
	for _, m := range l.entries {
		if err := m.Mount(root); err != nil {
			return err
		}
	}
	return nil
}

// UnmountAll releases every actuated entry in reverse order. All entries
// are attempted regardless of intermediate failures, entries that could
// not be released stay in the list keeping their insertion order, so a
// retry still tears them down children first.
func (l *List) UnmountAll() (err error) {
	var uFailures []*Mount
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i].Unmount()
		if e != nil {
			uFailures = append([]*Mount{l.entries[i]}, uFailures...)
			err = errors.Join(err, e)
		}
	}
	l.entries = uFailures
	if err != nil {
		return fmt.Errorf("releasing mount stack: %w", err)
	}
	return nil
}
