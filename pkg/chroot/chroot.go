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

package chroot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/suse/tukit/pkg/log"
	"github.com/suse/tukit/pkg/sys"
	"github.com/suse/tukit/pkg/sys/vfs"
)

// Chroot runs commands with the process root temporarily switched to a
// given path. The caller is responsible for having the required
// pseudo-filesystems and bind mounts in place below that path.
type Chroot struct {
	path    string
	fs      vfs.FS
	logger  log.Logger
	runner  sys.Runner
	syscall sys.Syscall
}

func New(s *sys.System, path string) *Chroot {
	return &Chroot{
		path:    path,
		runner:  s.Runner(),
		logger:  s.Logger(),
		fs:      s.FS(),
		syscall: s.Syscall(),
	}
}

// RunCallback runs the given callback in a chroot environment
func (c *Chroot) RunCallback(callback func() error) (err error) {
	var currentPath string
	var oldRootF *os.File

	// Store the current path
	currentPath, err = os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current path: %w", err)
	}
	defer func() {
		tmpErr := os.Chdir(currentPath)
		if err == nil && tmpErr != nil {
			err = tmpErr
		}
	}()

	// Chroot to an absolute path
	if !filepath.IsAbs(c.path) {
		oldPath := c.path
		c.path = filepath.Clean(filepath.Join(currentPath, c.path))
		c.logger.Warn("Requested chroot path %s is not absolute, changing it to %s", oldPath, c.path)
	}

	// Store current root
	oldRootF, err = c.fs.OpenFile("/", os.O_RDONLY, vfs.DirPerm)
	if err != nil {
		return fmt.Errorf("opening current root: %w", err)
	}
	defer oldRootF.Close()

	// Change to new dir before running chroot!
	err = c.syscall.Chdir(c.path)
	if err != nil {
		return fmt.Errorf("chdir %s: %w", c.path, err)
	}

	err = c.syscall.Chroot(c.path)
	if err != nil {
		return fmt.Errorf("chroot %s: %w", c.path, err)
	}

	// Restore to old root
	defer func() {
		tmpErr := oldRootF.Chdir()
		if tmpErr != nil {
			c.logger.Error("can't change to old root dir")
			if err == nil {
				err = tmpErr
			}
		} else {
			tmpErr = c.syscall.Chroot(".")
			if tmpErr != nil {
				c.logger.Error("can't chroot back to old root")
				if err == nil {
					err = tmpErr
				}
			}
		}
	}()

	return callback()
}

// Run executes a command inside the chroot. The returned error carries
// the command's exit state when it ran and failed.
func (c *Chroot) Run(command string, args ...string) (out []byte, err error) {
	callback := func() error {
		out, err = c.runner.Run(command, args...)
		return err
	}
	err = c.RunCallback(callback)
	if err != nil {
		// A command exiting non-zero is a result, not a chroot failure
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			c.logger.Debug("command %s exited with status %d", command, exitErr.ExitCode())
		} else {
			c.logger.Error("can't run command %s with args %v on chroot: %s", command, args, err)
		}
		c.logger.Debug("Output from command: %s", out)
	}
	return out, err
}
