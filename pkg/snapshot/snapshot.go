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

package snapshot

import (
	"fmt"
	"strconv"

	"github.com/suse/tukit/pkg/btrfs"
	"github.com/suse/tukit/pkg/snapper"
	"github.com/suse/tukit/pkg/sys"
)

const inProgressKey = "transactional-update-in-progress"

// Snapshot is an exclusively owned handle to a single snapshot. Close and
// Abort release the handle, each of them may be called at most once.
type Snapshot interface {
	// UID returns the unique snapshot identifier.
	UID() string
	// Root returns the filesystem root path of the snapshot.
	Root() string
	// IsReadOnly reports whether the snapshot subvolume is read-only.
	IsReadOnly() (bool, error)
	// SetReadOnly toggles the read-only flag of the snapshot subvolume.
	SetReadOnly(readOnly bool) error
	// Close commits the snapshot, it remains on disk and may become the
	// next boot target.
	Close() error
	// Abort discards the snapshot, deleting it from the backend.
	Abort() error
}

// Factory opens and creates snapshot handles and resolves the system's
// current and default snapshot ids.
type Factory interface {
	Open(id string) (Snapshot, error)
	Create(base string) (Snapshot, error)
	Current() (string, error)
	Default() (string, error)
}

type snapperFactory struct {
	s  *sys.System
	sn *snapper.Snapper
}

// NewSnapperFactory returns a snapshot factory backed by snapper and
// btrfs subvolumes.
func NewSnapperFactory(s *sys.System) Factory {
	return &snapperFactory{s: s, sn: snapper.New(s)}
}

func (f snapperFactory) Open(id string) (Snapshot, error) {
	num, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot id '%s': %w", id, err)
	}
	snaps, err := f.sn.ListSnapshots()
	if err != nil {
		return nil, err
	}
	if snaps.Get(num) == nil {
		return nil, fmt.Errorf("snapshot %d not found", num)
	}
	return &snapperSnapshot{s: f.s, sn: f.sn, num: num}, nil
}

func (f snapperFactory) Create(base string) (Snapshot, error) {
	baseNum, err := strconv.Atoi(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base snapshot id '%s': %w", base, err)
	}
	num, err := f.sn.CreateSnapshot(
		baseNum, fmt.Sprintf("snapshot of #%d", baseNum),
		snapper.Metadata{inProgressKey: "yes"},
	)
	if err != nil {
		return nil, err
	}
	return &snapperSnapshot{s: f.s, sn: f.sn, num: num}, nil
}

func (f snapperFactory) Current() (string, error) {
	snaps, err := f.sn.ListSnapshots()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(snaps.GetActive()), nil
}

func (f snapperFactory) Default() (string, error) {
	snaps, err := f.sn.ListSnapshots()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(snaps.GetDefault()), nil
}

type snapperSnapshot struct {
	s        *sys.System
	sn       *snapper.Snapper
	num      int
	released bool
}

func (s snapperSnapshot) UID() string {
	return strconv.Itoa(s.num)
}

func (s snapperSnapshot) Root() string {
	return snapper.SnapshotPath(s.num)
}

func (s snapperSnapshot) IsReadOnly() (bool, error) {
	return btrfs.IsReadOnly(s.s, s.Root())
}

func (s snapperSnapshot) SetReadOnly(readOnly bool) error {
	return s.sn.SetPermissions(s.num, !readOnly)
}

func (s *snapperSnapshot) Close() error {
	if s.released {
		return fmt.Errorf("snapshot %d already released", s.num)
	}
	err := s.sn.SetMetadata(s.num, snapper.Metadata{inProgressKey: ""})
	if err != nil {
		return fmt.Errorf("committing snapshot %d: %w", s.num, err)
	}
	s.released = true
	return nil
}

func (s *snapperSnapshot) Abort() error {
	if s.released {
		return fmt.Errorf("snapshot %d already released", s.num)
	}
	err := s.sn.DeleteByPath(s.Root())
	if err != nil {
		return fmt.Errorf("discarding snapshot %d: %w", s.num, err)
	}
	s.released = true
	return nil
}
