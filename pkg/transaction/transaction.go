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

package transaction

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/suse/tukit/pkg/chroot"
	"github.com/suse/tukit/pkg/cleanstack"
	"github.com/suse/tukit/pkg/config"
	"github.com/suse/tukit/pkg/mount"
	"github.com/suse/tukit/pkg/overlay"
	"github.com/suse/tukit/pkg/snapshot"
	"github.com/suse/tukit/pkg/sys"
	"github.com/suse/tukit/pkg/sys/vfs"
)

const (
	// BaseActive selects the currently booted snapshot as transaction base.
	BaseActive = "active"
	// BaseDefault selects the next boot target snapshot as transaction base.
	BaseDefault = "default"

	bindDirPrefix = "/tmp/transactional-update-"
)

// Transaction drives the lifecycle of a single system update: it owns a
// snapshot handle, the mount stack assembled inside the snapshot and a
// temporary bind directory serving as chroot target. A transaction ends
// with Finalize (commit), Keep (detach) or Cleanup (rollback).
type Transaction struct {
	s       *sys.System
	cfg     *config.Config
	factory snapshot.Factory
	snap    snapshot.Snapshot
	mounts  *mount.List
	bindDir string
}

func New(s *sys.System, cfg *config.Config, factory snapshot.Factory) *Transaction {
	return &Transaction{
		s:       s,
		cfg:     cfg,
		factory: factory,
		mounts:  mount.NewList(s),
	}
}

// IsInitialized reports whether the transaction holds a snapshot handle.
func (t *Transaction) IsInitialized() bool {
	return t.snap != nil
}

// Snapshot returns the id of the held snapshot, empty when detached.
func (t *Transaction) Snapshot() string {
	if t.snap == nil {
		return ""
	}
	return t.snap.UID()
}

// BindDir returns the chroot target directory of an open transaction.
func (t *Transaction) BindDir() string {
	return t.bindDir
}

// Init starts a new transaction on a snapshot branched off base. Base is
// a snapshot id or one of the symbolic names "active" and "default".
// Any failure during snapshot creation or mount assembly rolls back all
// intermediate state.
func (t *Transaction) Init(base string) (err error) {
	if t.snap != nil {
		return fmt.Errorf("transaction already initialized with snapshot %s", t.snap.UID())
	}

	cleanup := cleanstack.NewCleanStack()
	defer func() { err = cleanup.Cleanup(err) }()
	cleanup.PushErrorOnly(func() error {
		t.Cleanup()
		return nil
	})

	switch base {
	case BaseActive:
		base, err = t.factory.Current()
		if err != nil {
			return fmt.Errorf("resolving active snapshot: %w", err)
		}
	case BaseDefault:
		base, err = t.factory.Default()
		if err != nil {
			return fmt.Errorf("resolving default snapshot: %w", err)
		}
	}

	t.snap, err = t.factory.Create(base)
	if err != nil {
		return fmt.Errorf("creating snapshot from %s: %w", base, err)
	}
	t.s.Logger().Info("Starting transaction on snapshot %s", t.snap.UID())

	return t.mount(base)
}

// Open resumes a transaction on an existing uncommitted snapshot.
func (t *Transaction) Open(id string) (err error) {
	if t.snap != nil {
		return fmt.Errorf("transaction already initialized with snapshot %s", t.snap.UID())
	}

	cleanup := cleanstack.NewCleanStack()
	defer func() { err = cleanup.Cleanup(err) }()
	cleanup.PushErrorOnly(func() error {
		t.Cleanup()
		return nil
	})

	t.snap, err = t.factory.Open(id)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", id, err)
	}
	t.s.Logger().Info("Resuming transaction on snapshot %s", id)

	return t.mount(id)
}

// mount queues the mount stack, actuates it inside the snapshot root and
// rebinds the assembled tree into a fresh temporary directory. The queue
// order is mandatory, later entries land inside earlier ones.
func (t *Transaction) mount(base string) error {
	root := t.snap.Root()

	t.mounts.Add(mount.NewBind(t.s, "/dev"))
	t.mounts.Add(mount.NewBind(t.s, "/var/log"))

	isMnt, err := mount.New(t.s, "/var").IsMount()
	if err != nil {
		return fmt.Errorf("inspecting /var mount state: %w", err)
	}
	if isMnt {
		// Only safe when /var is separate, otherwise these binds would
		// mask snapshot content.
		t.mounts.Add(mount.NewBind(t.s, "/var/cache"))
		t.mounts.Add(mount.NewBind(t.s, "/var/lib/alternatives"))
	}

	if err = t.mountEtcOverlay(base, root); err != nil {
		return err
	}

	mntProc := mount.New(t.s, "/proc")
	mntProc.SetType("proc")
	mntProc.SetSource("none")
	t.mounts.Add(mntProc)

	mntSys := mount.New(t.s, "/sys")
	mntSys.SetType("sysfs")
	mntSys.SetSource("sys")
	t.mounts.Add(mntSys)

	for _, dir := range []string{"/root", "/boot/writable"} {
		isMnt, err = mount.New(t.s, dir).IsMount()
		if err != nil {
			return fmt.Errorf("inspecting %s mount state: %w", dir, err)
		}
		if isMnt {
			t.mounts.Add(mount.NewBind(t.s, dir))
		}
	}

	t.mounts.Add(mount.NewBind(t.s, "/.snapshots"))

	if err = t.mounts.MountAll(root); err != nil {
		return err
	}

	// Rebind the fully assembled tree into a stable mount point, some
	// tools (grub2-install among others) refuse to operate on the
	// snapshot's native path.
	bindDir := bindDirPrefix + uuid.NewString()
	if err = vfs.MkdirAll(t.s.FS(), bindDir, vfs.DirPerm); err != nil {
		return fmt.Errorf("creating bind directory: %w", err)
	}
	t.bindDir = bindDir

	mntBind := mount.NewBind(t.s, bindDir)
	mntBind.SetSource(root)
	if err = mntBind.Mount("/"); err != nil {
		return err
	}
	t.mounts.Add(mntBind)

	return nil
}

// mountEtcOverlay queues the /etc overlay entry when the host keeps its
// configuration in an overlay filesystem. The snapshot gets its own upper
// and work directories and an fstab entry describing them, the running
// overlay state is synchronized into the snapshot beforehand.
func (t *Transaction) mountEtcOverlay(base string, root string) error {
	mntEtc := mount.New(t.s, "/etc")
	isMnt, err := mntEtc.IsMount()
	if err != nil {
		return fmt.Errorf("inspecting /etc mount state: %w", err)
	}
	if !isMnt {
		return nil
	}
	fsType, err := mntEtc.GetFS()
	if err != nil {
		return fmt.Errorf("reading /etc filesystem type: %w", err)
	}
	if fsType != "overlay" {
		return nil
	}

	storage, err := t.cfg.Get(config.OverlayDir)
	if err != nil {
		return err
	}
	sysroot, err := t.cfg.Get(config.DracutSysroot)
	if err != nil {
		return err
	}

	ovl := overlay.New(t.s, storage, t.snap.UID())
	if err = ovl.Create(base); err != nil {
		return err
	}

	snapFstab := filepath.Join(root, "etc", "fstab")
	ovl.UpdateMountDirs(mntEtc, sysroot)
	if err = mntEtc.Persist(snapFstab); err != nil {
		return fmt.Errorf("persisting /etc mount definition: %w", err)
	}
	ovl.UpdateMountDirs(mntEtc)

	if err = ovl.Sync(root); err != nil {
		return err
	}

	t.mounts.Add(mntEtc)

	// Both the snapshot and the overlay have to agree on the mount
	// definitions, user modifications from the overlay are present in
	// the root fs and the /etc overlay is visible in the overlay.
	err = vfs.CopyFile(t.s.FS(), snapFstab, ovl.UpperDir())
	if err != nil {
		return fmt.Errorf("copying fstab into overlay: %w", err)
	}
	return nil
}

// Execute runs the given command inside the transaction's chroot and
// blocks until it exits. The command's exit status is returned, a failure
// to enter the chroot or to spawn the command at all is an error.
func (t *Transaction) Execute(command string, args ...string) (int, error) {
	if t.snap == nil {
		return 0, errors.New("transaction not initialized")
	}

	t.s.Logger().Info("Executing `%s`:", strings.Join(append([]string{command}, args...), " "))

	_, err := chroot.New(t.s, t.bindDir).Run(command, args...)
	if err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			t.s.Logger().Info("Application returned with exit status %d.", exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}

	t.s.Logger().Info("Application returned with exit status 0.")
	return 0, nil
}

// Finalize commits the held snapshot and aligns its read-only flag with
// the system's default snapshot. The transaction detaches, mount stack
// teardown remains a Cleanup concern but can no longer abort anything.
func (t *Transaction) Finalize() error {
	if t.snap == nil {
		return errors.New("transaction not initialized")
	}

	if err := t.snap.Close(); err != nil {
		return err
	}

	defID, err := t.factory.Default()
	if err != nil {
		return fmt.Errorf("resolving default snapshot: %w", err)
	}
	defSnap, err := t.factory.Open(defID)
	if err != nil {
		return fmt.Errorf("opening default snapshot: %w", err)
	}
	ro, err := defSnap.IsReadOnly()
	if err != nil {
		return fmt.Errorf("reading default snapshot state: %w", err)
	}
	if ro {
		if err = t.snap.SetReadOnly(true); err != nil {
			return err
		}
	}

	t.s.Logger().Info("Committed snapshot %s", t.snap.UID())
	t.snap = nil
	return nil
}

// Keep detaches the transaction without committing or discarding the
// snapshot, leaving it open in the backend for a later Open call.
func (t *Transaction) Keep() error {
	if t.snap == nil {
		return errors.New("transaction not initialized")
	}
	t.s.Logger().Info("Keeping snapshot %s open", t.snap.UID())
	t.snap = nil
	return nil
}

// Cleanup tears down the mount stack in reverse order, removes the bind
// directory and, when the transaction still holds its snapshot, aborts
// it. Errors are logged only so a cleanup failure never masks the error
// that triggered the rollback. Safe to call multiple times.
func (t *Transaction) Cleanup() {
	log := t.s.Logger()

	if err := t.mounts.UnmountAll(); err != nil {
		log.Error("failed releasing mount stack: %v", err)
	}

	if t.bindDir != "" {
		if err := vfs.ForceRemoveAll(t.s.FS(), t.bindDir); err != nil {
			log.Error("failed removing bind directory %s: %v", t.bindDir, err)
		}
		t.bindDir = ""
	}

	if t.snap != nil {
		log.Info("Discarding snapshot %s", t.snap.UID())
		if err := t.snap.Abort(); err != nil {
			log.Error("failed discarding snapshot %s: %v", t.snap.UID(), err)
		}
		t.snap = nil
	}
}
