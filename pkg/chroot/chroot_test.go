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

package chroot_test

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/suse/tukit/pkg/chroot"
	"github.com/suse/tukit/pkg/log"
	"github.com/suse/tukit/pkg/sys"
	sysmock "github.com/suse/tukit/pkg/sys/mock"
	"github.com/suse/tukit/pkg/sys/vfs"
)

func TestChrootSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chroot test suite")
}

var _ = Describe("Chroot", Label("chroot"), func() {
	var runner *sysmock.Runner
	var syscall *sysmock.Syscall
	var fs vfs.FS
	var cleanup func()
	var s *sys.System
	BeforeEach(func() {
		var err error
		runner = sysmock.NewRunner()
		syscall = &sysmock.Syscall{}
		fs, cleanup, err = sysmock.TestFS(nil)
		Expect(err).NotTo(HaveOccurred())
		s, err = sys.NewSystem(
			sys.WithFS(fs), sys.WithRunner(runner), sys.WithSyscall(syscall),
			sys.WithLogger(log.New(log.WithDiscardAll())),
		)
		Expect(err).NotTo(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})
	It("runs a command on the chroot environment", func() {
		c := chroot.New(s, "/whatever")
		_, err := c.Run("ls")
		Expect(err).To(BeNil())
		Expect(syscall.WasChrootCalledWith("/whatever")).To(BeTrue())
		Expect(runner.CmdsMatch([][]string{{"ls"}})).To(Succeed())
	})
	It("runs a callback in a chroot environment", func() {
		c := chroot.New(s, "/whatever")
		called := false
		Expect(c.RunCallback(func() error {
			called = true
			return nil
		})).To(Succeed())
		Expect(called).To(BeTrue())
		Expect(syscall.WasChrootCalledWith("/whatever")).To(BeTrue())
		Expect(syscall.WasChdirCalledWith("/whatever")).To(BeTrue())
	})
	It("fails if chroot syscall is denied", func() {
		syscall.ErrorOnChroot = true
		c := chroot.New(s, "/whatever")
		_, err := c.Run("ls")
		Expect(err).ToNot(BeNil())
		Expect(err.Error()).To(ContainSubstring("chroot"))
	})
	It("fails if chdir syscall is denied", func() {
		syscall.ErrorOnChdir = true
		c := chroot.New(s, "/whatever")
		Expect(c.RunCallback(func() error { return nil })).NotTo(Succeed())
		Expect(syscall.WasChrootCalledWith("/whatever")).To(BeFalse())
	})
	It("propagates the command error", func() {
		runner.ReturnError = &mockExitError{}
		c := chroot.New(s, "/whatever")
		_, err := c.Run("false")
		Expect(err).To(Equal(runner.ReturnError))
	})
	It("does not log an error when the command merely exits non-zero", func() {
		memLog := &bytes.Buffer{}
		s, err := sys.NewSystem(
			sys.WithFS(fs), sys.WithRunner(runner), sys.WithSyscall(syscall),
			sys.WithLogger(log.New(log.WithBuffer(memLog))),
		)
		Expect(err).NotTo(HaveOccurred())
		c := chroot.New(s, "/whatever")

		runner.ReturnError = &mockExitError{}
		_, err = c.Run("false")
		Expect(err).NotTo(BeNil())
		Expect(memLog.String()).NotTo(ContainSubstring("can't run command"))

		runner.ReturnError = errors.New("spawn failed")
		_, err = c.Run("false")
		Expect(err).NotTo(BeNil())
		Expect(memLog.String()).To(ContainSubstring("can't run command"))
	})
})

type mockExitError struct{}

func (m *mockExitError) Error() string { return "exit status 1" }

func (m *mockExitError) ExitCode() int { return 1 }
