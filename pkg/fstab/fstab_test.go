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

package fstab_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/format"

	"github.com/suse/tukit/pkg/fstab"
	"github.com/suse/tukit/pkg/log"
	"github.com/suse/tukit/pkg/sys"
	sysmock "github.com/suse/tukit/pkg/sys/mock"
	"github.com/suse/tukit/pkg/sys/vfs"
)

func TestFstabSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fstab test suite")
}

const fstabFile = `/dev/device   /     ext2    ro,defaults             0 1
LABEL=mylabel /data btrfs   defaults,subvol=/@/data 0 0
UUID=afadf    /etc  overlay defaults                0 0
`

var _ = Describe("Fstab", Label("fstab"), func() {
	var tfs vfs.FS
	var s *sys.System
	var cleanup func()
	var err error
	var lines []fstab.Line
	BeforeEach(func() {
		tfs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		s, err = sys.NewSystem(sys.WithFS(tfs), sys.WithLogger(log.New(log.WithDiscardAll())))
		Expect(err).NotTo(HaveOccurred())
		Expect(vfs.MkdirAll(tfs, "/etc", vfs.DirPerm)).To(Succeed())

		lines = []fstab.Line{{
			Device:     "/dev/device",
			MountPoint: "/",
			FileSystem: "ext2",
			Options:    []string{"ro", "defaults"},
			FsckOrder:  1,
		}, {
			Device:     "LABEL=mylabel",
			MountPoint: "/data",
			FileSystem: "btrfs",
			Options:    []string{"defaults", "subvol=/@/data"},
		}, {
			Device:     "UUID=afadf",
			MountPoint: "/etc",
			FileSystem: "overlay",
			Options:    []string{"defaults"},
		}}
		format.TruncatedDiff = false
	})
	AfterEach(func() {
		cleanup()
	})
	It("creates an fstab file with the given lines", func() {
		Expect(fstab.Write(s, fstab.File, lines)).To(Succeed())
		data, err := tfs.ReadFile(fstab.File)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(fstabFile))
	})
	It("fails to write fstab file on a read-only filesystem", func() {
		rofs, err := sysmock.ReadOnlyTestFS(tfs)
		Expect(err).NotTo(HaveOccurred())
		s, err = sys.NewSystem(sys.WithFS(rofs), sys.WithLogger(log.New(log.WithDiscardAll())))
		Expect(err).NotTo(HaveOccurred())

		err = fstab.Write(s, fstab.File, lines)
		Expect(err).To(HaveOccurred())
	})
	It("parses back the lines it wrote", func() {
		Expect(fstab.Write(s, fstab.File, lines)).To(Succeed())
		parsed, err := fstab.Read(s, fstab.File)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(lines))
	})
	It("parses a missing file to no lines", func() {
		parsed, err := fstab.Read(s, "/etc/does/not/exist")
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(BeEmpty())
	})
	It("replaces the line matching the mount point", func() {
		Expect(fstab.Write(s, fstab.File, lines)).To(Succeed())
		Expect(fstab.Set(s, fstab.File, fstab.Line{
			Device:     "overlay",
			MountPoint: "/etc",
			FileSystem: "overlay",
			Options:    []string{"lowerdir=/sysroot/etc", "upperdir=/sysroot/var/lib/overlay/2/etc", "workdir=/sysroot/var/lib/overlay/2/work-etc"},
		})).To(Succeed())

		parsed, err := fstab.Read(s, fstab.File)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(parsed)).To(Equal(3))
		Expect(parsed[2].Device).To(Equal("overlay"))
		Expect(parsed[2].Options[0]).To(Equal("lowerdir=/sysroot/etc"))
	})
	It("appends a line when no mount point matches", func() {
		Expect(fstab.Write(s, fstab.File, lines)).To(Succeed())
		Expect(fstab.Set(s, fstab.File, fstab.Line{
			Device:     "none",
			MountPoint: "/proc",
			FileSystem: "proc",
			Options:    []string{"defaults"},
		})).To(Succeed())

		parsed, err := fstab.Read(s, fstab.File)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(parsed)).To(Equal(4))
		Expect(parsed[3].MountPoint).To(Equal("/proc"))
	})
	It("fails to parse invalid content", func() {
		Expect(tfs.WriteFile(fstab.File, []byte("not a valid fstab line\n"), vfs.FilePerm)).To(Succeed())
		_, err := fstab.Read(s, fstab.File)
		Expect(err).To(HaveOccurred())
	})
})
