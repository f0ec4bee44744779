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

package config_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/suse/tukit/pkg/config"
	"github.com/suse/tukit/pkg/log"
	"github.com/suse/tukit/pkg/sys"
	sysmock "github.com/suse/tukit/pkg/sys/mock"
	"github.com/suse/tukit/pkg/sys/vfs"
)

func TestConfigSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config test suite")
}

var _ = Describe("Config", Label("config"), func() {
	var fs vfs.FS
	var s *sys.System
	var cleanup func()
	BeforeEach(func() {
		var err error
		fs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithFS(fs), sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})
	It("provides built-in defaults when no configuration file exists", func() {
		conf, err := config.New(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.Get(config.DracutSysroot)).To(Equal("/sysroot"))
		Expect(conf.Get(config.OverlayDir)).To(Equal("/var/lib/overlay"))
		Expect(conf.Get(config.LockFile)).To(Equal("/var/run/tukit.pid"))
	})
	It("merges overrides from the configuration file", func() {
		Expect(vfs.MkdirAll(fs, "/etc", vfs.DirPerm)).To(Succeed())
		data := "OVERLAY_DIR=/srv/overlay\n"
		Expect(fs.WriteFile(config.File, []byte(data), vfs.FilePerm)).To(Succeed())

		conf, err := config.New(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.Get(config.OverlayDir)).To(Equal("/srv/overlay"))
		Expect(conf.Get(config.DracutSysroot)).To(Equal("/sysroot"))
	})
	It("fails looking up an unknown key", func() {
		conf, err := config.New(s)
		Expect(err).NotTo(HaveOccurred())
		_, err = conf.Get("NO_SUCH_KEY")
		Expect(err).To(HaveOccurred())
	})
	It("fails on an unparseable configuration file", func() {
		Expect(vfs.MkdirAll(fs, "/etc", vfs.DirPerm)).To(Succeed())
		Expect(fs.WriteFile(config.File, []byte(`"unterminated`), vfs.FilePerm)).To(Succeed())
		_, err := config.New(s)
		Expect(err).To(HaveOccurred())
	})
})
