/*
Copyright © 2025 SUSE LLC

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

package vfs_test

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sysmock "github.com/suse/tukit/pkg/sys/mock"
	"github.com/suse/tukit/pkg/sys/vfs"
)

func TestVfsSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "vfs test suite")
}

var _ = Describe("FS", Label("fs"), func() {
	var tfs vfs.FS
	var cleanup func()
	var err error

	BeforeEach(func() {
		tfs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(vfs.MkdirAll(tfs, "/folder/subfolder", vfs.DirPerm)).To(Succeed())
		Expect(tfs.WriteFile("/folder/file", []byte("some data"), vfs.FilePerm)).To(Succeed())
		Expect(tfs.WriteFile("/folder/subfolder/file1", []byte("more data"), vfs.FilePerm)).To(Succeed())
	})

	AfterEach(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	Describe("Exists", func() {
		It("reports existing and missing paths", func() {
			exists, err := vfs.Exists(tfs, "/folder/file")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = vfs.Exists(tfs, "/nonexisting")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
		It("follows symlinks on request", func() {
			Expect(tfs.Symlink("/nonexisting", "/folder/broken")).To(Succeed())

			exists, err := vfs.Exists(tfs, "/folder/broken")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = vfs.Exists(tfs, "/folder/broken", true)
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})
	Describe("IsDir", func() {
		It("discriminates directories and files", func() {
			Expect(tfs.Symlink("subfolder", "/folder/linkToSubfolder")).To(Succeed())

			dir, err := vfs.IsDir(tfs, "/folder")
			Expect(dir).To(BeTrue())
			Expect(err).ToNot(HaveOccurred())

			dir, err = vfs.IsDir(tfs, "/folder/subfolder/file1")
			Expect(dir).To(BeFalse())
			Expect(err).ToNot(HaveOccurred())

			// does not follow symlinks
			dir, err = vfs.IsDir(tfs, "/folder/linkToSubfolder")
			Expect(dir).To(BeFalse())
			Expect(err).ToNot(HaveOccurred())

			// follows symlinks
			dir, err = vfs.IsDir(tfs, "/folder/linkToSubfolder", true)
			Expect(dir).To(BeTrue())
			Expect(err).ToNot(HaveOccurred())

			dir, err = vfs.IsDir(tfs, "/nonexisting")
			Expect(dir).To(BeFalse())
			Expect(err).To(HaveOccurred())
		})
	})
	Describe("ForceRemoveAll", func() {
		It("removes a write protected tree", func() {
			Expect(tfs.Chmod("/folder/subfolder", vfs.NoWriteDirPerm)).To(Succeed())
			Expect(vfs.ForceRemoveAll(tfs, "/folder")).To(Succeed())

			exists, err := vfs.Exists(tfs, "/folder")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})
	Describe("CopyFile", func() {
		It("copies a file preserving its content", func() {
			Expect(vfs.CopyFile(tfs, "/folder/file", "/folder/copy")).To(Succeed())

			data, err := tfs.ReadFile("/folder/copy")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("some data"))
		})
		It("copies into a directory keeping the source name", func() {
			Expect(vfs.CopyFile(tfs, "/folder/file", "/folder/subfolder")).To(Succeed())

			data, err := tfs.ReadFile("/folder/subfolder/file")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("some data"))
		})
		It("fails on a missing source", func() {
			Expect(vfs.CopyFile(tfs, "/nonexisting", "/folder/copy")).NotTo(Succeed())
		})
	})
	Describe("LoadEnvFile", func() {
		It("parses key value pairs", func() {
			Expect(tfs.WriteFile("/folder/env", []byte("KEY=\"value\"\nOTHER=thing\n"), vfs.FilePerm)).To(Succeed())

			envMap, err := vfs.LoadEnvFile(tfs, "/folder/env")
			Expect(err).ToNot(HaveOccurred())
			Expect(envMap).To(HaveKeyWithValue("KEY", "value"))
			Expect(envMap).To(HaveKeyWithValue("OTHER", "thing"))
		})
		It("fails on a missing file", func() {
			_, err := vfs.LoadEnvFile(tfs, "/nonexisting")
			Expect(err).To(HaveOccurred())
		})
	})
	Describe("TempDir", func() {
		It("creates a directory with the given prefix", func() {
			dir, err := vfs.TempDir(tfs, "/folder", "work-")
			Expect(err).ToNot(HaveOccurred())
			Expect(strings.HasPrefix(dir, "/folder/work-")).To(BeTrue())

			isDir, err := vfs.IsDir(tfs, dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(isDir).To(BeTrue())
		})
	})
	Describe("WalkDirFs", func() {
		It("visits every entry under the root", func() {
			var visited []string
			err := vfs.WalkDirFs(tfs, "/folder", func(path string, d fs.DirEntry, err error) error {
				Expect(err).ToNot(HaveOccurred())
				visited = append(visited, path)
				return nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(visited).To(ContainElements(
				"/folder", "/folder/file", "/folder/subfolder", "/folder/subfolder/file1",
			))
		})
	})
	Describe("SanitizedJoin", func() {
		It("joins elements under the given root", func() {
			Expect(vfs.SanitizedJoin("/root", "some", "path")).To(Equal(filepath.Join("/root", "some", "path")))
		})
		It("refuses to escape the root", func() {
			Expect(vfs.SanitizedJoin("/root", "../../etc")).To(Equal("/root"))
		})
	})
})
