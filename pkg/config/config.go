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

package config

import (
	"fmt"

	"github.com/suse/tukit/pkg/sys"
	"github.com/suse/tukit/pkg/sys/vfs"
)

// File is the default location of the configuration overrides
const File = "/etc/tukit.conf"

// Known configuration keys
const (
	DracutSysroot = "DRACUT_SYSROOT"
	LockFile      = "LOCKFILE"
	OverlayDir    = "OVERLAY_DIR"
)

func defaults() map[string]string {
	return map[string]string{
		DracutSysroot: "/sysroot",
		LockFile:      "/var/run/tukit.pid",
		OverlayDir:    "/var/lib/overlay",
	}
}

// Config resolves configuration keys to string values, any value not
// present in the override file falls back to the built-in default.
type Config struct {
	values map[string]string
}

// New returns the configuration merged from built-in defaults and the
// default override file, if it exists. The override file uses env-file
// (KEY=value) syntax.
func New(s *sys.System) (*Config, error) {
	return NewFromFile(s, File)
}

// NewFromFile behaves as New but reads overrides from the given file
func NewFromFile(s *sys.System, file string) (*Config, error) {
	conf := &Config{values: defaults()}

	ok, err := vfs.Exists(s.FS(), file, true)
	if err != nil {
		return nil, fmt.Errorf("checking configuration file '%s': %w", file, err)
	}
	if !ok {
		return conf, nil
	}

	overrides, err := vfs.LoadEnvFile(s.FS(), file)
	if err != nil {
		return nil, fmt.Errorf("parsing configuration file '%s': %w", file, err)
	}
	for k, v := range overrides {
		conf.values[k] = v
	}
	return conf, nil
}

// Get returns the value for the given key. Looking up a key without a
// configured or default value is an error.
func (c Config) Get(key string) (string, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("no configuration setting for key '%s'", key)
}
