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

package btrfs

import (
	"fmt"
	"strings"

	"github.com/suse/tukit/pkg/sys"
)

// IsReadOnly returns the read-only property of the given subvolume.
func IsReadOnly(s *sys.System, path string) (bool, error) {
	cmdOut, err := s.Runner().Run("btrfs", "property", "get", "-ts", path, "ro")
	if err != nil {
		return false, fmt.Errorf("reading ro property of subvolume '%s': %s: %w", path, string(cmdOut), err)
	}
	switch strings.TrimSpace(string(cmdOut)) {
	case "ro=true":
		return true, nil
	case "ro=false":
		return false, nil
	}
	return false, fmt.Errorf("unexpected property output for subvolume '%s': %s", path, string(cmdOut))
}

// SetReadOnly sets the read-only property of the given subvolume.
func SetReadOnly(s *sys.System, path string, readOnly bool) error {
	s.Logger().Debug("Setting ro property of subvolume %s to %t", path, readOnly)
	cmdOut, err := s.Runner().Run("btrfs", "property", "set", "-ts", path, "ro", fmt.Sprintf("%t", readOnly))
	if err != nil {
		return fmt.Errorf("setting ro property of subvolume '%s': %s: %w", path, string(cmdOut), err)
	}
	return nil
}

// DeleteSubvolume removes the given subvolume. Before removing the subvolume
// it clears the RO property to ensure it can be deleted, if deletion fails
// the property change remains applied.
func DeleteSubvolume(s *sys.System, path string) error {
	err := SetReadOnly(s, path, false)
	if err != nil {
		return fmt.Errorf("setting rw permissions before deletion: %w", err)
	}
	_, err = s.Runner().Run("btrfs", "subvolume", "delete", "-c", "-R", path)
	return err
}
