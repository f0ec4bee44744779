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
	"errors"

	"github.com/suse/tukit/pkg/sys"
)

var _ sys.Syscall = (*Syscall)(nil)

// Syscall is a test double recording chroot and chdir calls.
type Syscall struct {
	ErrorOnChroot bool
	ErrorOnChdir  bool
	chrootHistory []string
	chdirHistory  []string
}

func (s *Syscall) Chroot(path string) error {
	if s.ErrorOnChroot {
		return errors.New("chroot error")
	}
	s.chrootHistory = append(s.chrootHistory, path)
	return nil
}

func (s *Syscall) Chdir(path string) error {
	if s.ErrorOnChdir {
		return errors.New("chdir error")
	}
	s.chdirHistory = append(s.chdirHistory, path)
	return nil
}

func (s Syscall) WasChrootCalledWith(path string) bool {
	for _, c := range s.chrootHistory {
		if c == path {
			return true
		}
	}
	return false
}

func (s Syscall) WasChdirCalledWith(path string) bool {
	for _, c := range s.chdirHistory {
		if c == path {
			return true
		}
	}
	return false
}
