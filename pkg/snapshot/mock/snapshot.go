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
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/suse/tukit/pkg/snapshot"
)

var _ snapshot.Snapshot = (*Snapshot)(nil)
var _ snapshot.Factory = (*Factory)(nil)

// Snapshot is a mocked snapshot handle tracking its lifecycle calls.
type Snapshot struct {
	Uid      string
	RootPath string
	ReadOnly bool
	Closed   bool
	Aborted  bool

	ErrorOnClose       bool
	ErrorOnAbort       bool
	ErrorOnSetReadOnly bool
}

func (m *Snapshot) UID() string {
	return m.Uid
}

func (m *Snapshot) Root() string {
	return m.RootPath
}

func (m *Snapshot) IsReadOnly() (bool, error) {
	return m.ReadOnly, nil
}

func (m *Snapshot) SetReadOnly(readOnly bool) error {
	if m.ErrorOnSetReadOnly {
		return errors.New("set read-only error")
	}
	m.ReadOnly = readOnly
	return nil
}

func (m *Snapshot) Close() error {
	if m.ErrorOnClose {
		return errors.New("close error")
	}
	if m.Closed || m.Aborted {
		return fmt.Errorf("snapshot %s already released", m.Uid)
	}
	m.Closed = true
	return nil
}

func (m *Snapshot) Abort() error {
	if m.ErrorOnAbort {
		return errors.New("abort error")
	}
	if m.Closed || m.Aborted {
		return fmt.Errorf("snapshot %s already released", m.Uid)
	}
	m.Aborted = true
	return nil
}

// Factory is a mocked snapshot factory serving handles from an in-memory
// snapshot set.
type Factory struct {
	ActiveID  string
	DefaultID string
	Snapshots map[string]*Snapshot

	ErrorOnOpen   bool
	ErrorOnCreate bool

	nextID int
}

func NewFactory(active, def string) *Factory {
	f := &Factory{
		ActiveID:  active,
		DefaultID: def,
		Snapshots: map[string]*Snapshot{},
		nextID:    10,
	}
	for _, id := range []string{active, def} {
		f.Snapshots[id] = &Snapshot{
			Uid:      id,
			RootPath: filepath.Join("/.snapshots", id, "snapshot"),
			ReadOnly: true,
		}
	}
	return f
}

func (f *Factory) Open(id string) (snapshot.Snapshot, error) {
	if f.ErrorOnOpen {
		return nil, errors.New("open error")
	}
	snap, ok := f.Snapshots[id]
	if !ok || snap.Aborted {
		return nil, fmt.Errorf("snapshot %s not found", id)
	}
	return snap, nil
}

func (f *Factory) Create(base string) (snapshot.Snapshot, error) {
	if f.ErrorOnCreate {
		return nil, errors.New("create error")
	}
	if _, ok := f.Snapshots[base]; !ok {
		return nil, fmt.Errorf("base snapshot %s not found", base)
	}
	f.nextID++
	id := strconv.Itoa(f.nextID)
	snap := &Snapshot{
		Uid:      id,
		RootPath: filepath.Join("/.snapshots", id, "snapshot"),
	}
	f.Snapshots[id] = snap
	return snap, nil
}

func (f *Factory) Current() (string, error) {
	return f.ActiveID, nil
}

func (f *Factory) Default() (string, error) {
	return f.DefaultID, nil
}
