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

package snapper

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suse/tukit/pkg/btrfs"
	"github.com/suse/tukit/pkg/sys"
)

const (
	SnapshotsPath = "/.snapshots"

	rootConfig = "root"
)

type Snapper struct {
	s *sys.System
}

type Snapshot struct {
	Number   int      `json:"number"`
	Default  bool     `json:"default"`
	Active   bool     `json:"active"`
	UserData Metadata `json:"userdata,omitempty"`
}

type Metadata map[string]string

type Snapshots []*Snapshot

// GetDefault returns the number of the default snapshot, this is the
// snapshot the system boots into next.
func (s Snapshots) GetDefault() int {
	for _, snap := range s {
		if snap.Default {
			return snap.Number
		}
	}
	return 0
}

// GetActive returns the number of the currently booted snapshot.
func (s Snapshots) GetActive() int {
	for _, snap := range s {
		if snap.Active {
			return snap.Number
		}
	}
	return 0
}

func (s Snapshots) Get(number int) *Snapshot {
	for _, snap := range s {
		if snap.Number == number {
			return snap
		}
	}
	return nil
}

func (m Metadata) String() string {
	var str string
	for k, v := range m {
		str += fmt.Sprintf("%s=%s,", k, v)
	}
	return strings.TrimSuffix(str, ",")
}

func New(s *sys.System) *Snapper {
	return &Snapper{s: s}
}

// SnapshotPath returns the subvolume path of the given snapshot number.
func SnapshotPath(number int) string {
	return filepath.Join(SnapshotsPath, strconv.Itoa(number), "snapshot")
}

// ListSnapshots lists the snapshots of the 'root' configuration.
func (sn Snapper) ListSnapshots() (Snapshots, error) {
	args := []string{"--no-dbus", "-c", rootConfig, "--jsonout", "list", "--columns", "number,default,active,userdata"}
	cmdOut, err := sn.s.Runner().Run("snapper", args...)
	if err != nil {
		sn.s.Logger().Error("failed collecting snapshots: %s", string(cmdOut))
		return nil, err
	}
	return unmarshalSnapperList(cmdOut, rootConfig)
}

// CreateSnapshot creates a new read-write snapshot branched off the given
// base snapshot and returns its number.
func (sn Snapper) CreateSnapshot(base int, description string, metadata Metadata) (int, error) {
	args := []string{"LC_ALL=C", "snapper", "--no-dbus", "-c", rootConfig, "create", "--print-number", "-c", "number", "--read-write"}
	if len(metadata) > 0 {
		args = append(args, "--userdata", metadata.String())
	}
	if description != "" {
		args = append(args, "--description", description)
	}
	if base > 0 {
		args = append(args, "--from", strconv.Itoa(base))
	}

	sn.s.Logger().Debug("Creating a new snapshot from %d", base)
	cmdOut, err := sn.s.Runner().Run("env", args...)
	if err != nil {
		sn.s.Logger().Error("snapper failed to create a new snapshot: %v", err)
		return 0, err
	}
	newSnap, err := strconv.Atoi(strings.TrimSpace(string(cmdOut)))
	if err != nil {
		sn.s.Logger().Error("failed parsing new snapshot number")
		return 0, err
	}

	return newSnap, nil
}

// SetPermissions toggles a snapshot between read-write and read-only.
func (sn Snapper) SetPermissions(id int, rw bool) error {
	args := []string{"--no-dbus", "modify"}
	if rw {
		args = append(args, "--read-write")
	} else {
		args = append(args, "--read-only")
	}
	args = append(args, strconv.Itoa(id))
	_, err := sn.s.Runner().Run("snapper", args...)
	if err != nil {
		sn.s.Logger().Error("snapper failed to set snapshot permissions: %v", err)
		return err
	}
	return nil
}

// SetMetadata replaces userdata entries of a snapshot. An empty value
// removes the key.
func (sn Snapper) SetMetadata(id int, metadata Metadata) error {
	args := []string{"--no-dbus", "modify", "--userdata", metadata.String(), strconv.Itoa(id)}
	_, err := sn.s.Runner().Run("snapper", args...)
	if err != nil {
		sn.s.Logger().Error("snapper failed to modify snapshot userdata: %v", err)
		return err
	}
	return nil
}

// DeleteByPath removes the given snapshot path including any nested RO subvolume
func (sn Snapper) DeleteByPath(path string) error {
	err := btrfs.DeleteSubvolume(sn.s, path)
	if err != nil {
		sn.s.Logger().Error("failed deleting snapshot '%s'", path)
		return err
	}
	err = sn.s.FS().RemoveAll(filepath.Dir(path))
	if err != nil {
		sn.s.Logger().Error("failed deleting snapshot '%s' parent directory", path)
		return err
	}
	return nil
}

func unmarshalSnapperList(snapperOut []byte, config string) (Snapshots, error) {
	var objmap map[string]*json.RawMessage
	err := json.Unmarshal(snapperOut, &objmap)
	if err != nil {
		return nil, err
	}

	if _, ok := objmap[config]; !ok {
		return nil, fmt.Errorf("invalid json object, no '%s' key found", config)
	}

	var snaps Snapshots
	err = json.Unmarshal(*objmap[config], &snaps)
	if err != nil {
		return nil, err
	}

	// Skip snapshot 0 from the list
	var snapshots Snapshots
	for _, snap := range snaps {
		if snap.Number == 0 {
			continue
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}
