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

package btrfs_test

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/suse/tukit/pkg/btrfs"
	"github.com/suse/tukit/pkg/log"
	"github.com/suse/tukit/pkg/sys"
	sysmock "github.com/suse/tukit/pkg/sys/mock"
)

func TestBtrfsSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Btrfs test suite")
}

var _ = Describe("Btrfs", Label("btrfs"), func() {
	var s *sys.System
	var err error
	var runner *sysmock.Runner
	BeforeEach(func() {
		runner = sysmock.NewRunner()
		s, err = sys.NewSystem(
			sys.WithLogger(log.New(log.WithDiscardAll())),
			sys.WithRunner(runner),
		)
		Expect(err).NotTo(HaveOccurred())
	})
	It("reads the ro property", func() {
		runner.ReturnValue = []byte("ro=true\n")
		ro, err := btrfs.IsReadOnly(s, "/.snapshots/1/snapshot")
		Expect(err).NotTo(HaveOccurred())
		Expect(ro).To(BeTrue())
		Expect(runner.IncludesCmds([][]string{{
			"btrfs", "property", "get", "-ts", "/.snapshots/1/snapshot", "ro",
		}})).To(Succeed())

		runner.ReturnValue = []byte("ro=false\n")
		ro, err = btrfs.IsReadOnly(s, "/.snapshots/1/snapshot")
		Expect(err).NotTo(HaveOccurred())
		Expect(ro).To(BeFalse())
	})
	It("fails on unexpected property output", func() {
		runner.ReturnValue = []byte("garbage")
		_, err := btrfs.IsReadOnly(s, "/.snapshots/1/snapshot")
		Expect(err).To(HaveOccurred())
	})
	It("sets the ro property", func() {
		Expect(btrfs.SetReadOnly(s, "/.snapshots/2/snapshot", true)).To(Succeed())
		Expect(runner.IncludesCmds([][]string{{
			"btrfs", "property", "set", "-ts", "/.snapshots/2/snapshot", "ro", "true",
		}})).To(Succeed())
	})
	It("deletes subvolume", func() {
		Expect(btrfs.DeleteSubvolume(s, "/path/to/subvolume")).To(Succeed())
		Expect(runner.IncludesCmds([][]string{
			{"btrfs", "property", "set", "-ts", "/path/to/subvolume", "ro", "false"},
			{"btrfs", "subvolume", "delete", "-c", "-R", "/path/to/subvolume"},
		})).To(Succeed())
	})
	It("reports command failures", func() {
		runner.ReturnError = errors.New("btrfs error")
		Expect(btrfs.SetReadOnly(s, "/path", false)).NotTo(Succeed())
		_, err := btrfs.IsReadOnly(s, "/path")
		Expect(err).To(HaveOccurred())
	})
})
