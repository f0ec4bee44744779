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

package snapshot_test

import (
	"fmt"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/suse/tukit/pkg/log"
	"github.com/suse/tukit/pkg/snapshot"
	"github.com/suse/tukit/pkg/sys"
	sysmock "github.com/suse/tukit/pkg/sys/mock"
	"github.com/suse/tukit/pkg/sys/vfs"
)

func TestSnapshotSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Snapshot test suite")
}

const snapperList = `{
  "root": [
    {
      "number": 1,
      "default": false,
      "active": true,
      "userdata": null
    },
    {
      "number": 2,
      "default": true,
      "active": false,
      "userdata": null
    }
  ]
}`

var _ = Describe("Snapshot factory", Label("snapshot"), func() {
	var runner *sysmock.Runner
	var fs vfs.FS
	var cleanup func()
	var s *sys.System
	var factory snapshot.Factory
	BeforeEach(func() {
		var err error
		runner = sysmock.NewRunner()
		fs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).ToNot(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithRunner(runner), sys.WithFS(fs),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
		factory = snapshot.NewSnapperFactory(s)
		runner.SideEffect = func(cmd string, args ...string) ([]byte, error) {
			if cmd == "snapper" && strings.Contains(strings.Join(args, " "), "list") {
				return []byte(snapperList), nil
			}
			return []byte{}, nil
		}
	})
	AfterEach(func() {
		cleanup()
	})
	It("resolves current and default snapshot ids", func() {
		Expect(factory.Current()).To(Equal("1"))
		Expect(factory.Default()).To(Equal("2"))
	})
	It("opens an existing snapshot", func() {
		snap, err := factory.Open("2")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.UID()).To(Equal("2"))
		Expect(snap.Root()).To(Equal("/.snapshots/2/snapshot"))
	})
	It("fails to open a missing or malformed snapshot id", func() {
		_, err := factory.Open("42")
		Expect(err).To(HaveOccurred())
		_, err = factory.Open("current")
		Expect(err).To(HaveOccurred())
	})
	It("creates a new snapshot from a base", func() {
		runner.SideEffect = func(cmd string, args ...string) ([]byte, error) {
			if cmd == "env" {
				return []byte("3\n"), nil
			}
			return []byte(snapperList), nil
		}
		snap, err := factory.Create("2")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.UID()).To(Equal("3"))
		Expect(runner.IncludesCmds([][]string{
			{"env", "LC_ALL=C", "snapper", "--no-dbus", "-c", "root", "create"},
		})).To(Succeed())
	})
	It("propagates snapshot creation failures", func() {
		runner.SideEffect = nil
		runner.ReturnError = fmt.Errorf("snapper failed")
		_, err := factory.Create("2")
		Expect(err).To(HaveOccurred())
	})
	Describe("snapshot handle", func() {
		var snap snapshot.Snapshot
		BeforeEach(func() {
			var err error
			snap, err = factory.Open("2")
			Expect(err).NotTo(HaveOccurred())
			runner.ClearCmds()
		})
		It("reads and toggles the read-only flag", func() {
			runner.SideEffect = func(cmd string, _ ...string) ([]byte, error) {
				if cmd == "btrfs" {
					return []byte("ro=true\n"), nil
				}
				return []byte{}, nil
			}
			Expect(snap.IsReadOnly()).To(BeTrue())
			Expect(snap.SetReadOnly(false)).To(Succeed())
			Expect(snap.SetReadOnly(true)).To(Succeed())
			Expect(runner.IncludesCmds([][]string{
				{"btrfs", "property", "get", "-ts", "/.snapshots/2/snapshot", "ro"},
				{"snapper", "--no-dbus", "modify", "--read-write", "2"},
				{"snapper", "--no-dbus", "modify", "--read-only", "2"},
			})).To(Succeed())
		})
		It("commits at most once", func() {
			Expect(snap.Close()).To(Succeed())
			Expect(runner.IncludesCmds([][]string{
				{"snapper", "--no-dbus", "modify", "--userdata", "transactional-update-in-progress=", "2"},
			})).To(Succeed())
			Expect(snap.Close()).NotTo(Succeed())
			Expect(snap.Abort()).NotTo(Succeed())
		})
		It("discards at most once", func() {
			Expect(snap.Abort()).To(Succeed())
			Expect(runner.IncludesCmds([][]string{
				{"btrfs", "subvolume", "delete", "-c", "-R", "/.snapshots/2/snapshot"},
			})).To(Succeed())
			Expect(snap.Abort()).NotTo(Succeed())
			Expect(snap.Close()).NotTo(Succeed())
		})
	})
})
