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

package cleanstack

import (
	"errors"
)

type jobType int

const (
	always jobType = iota
	errorOnly
	successOnly
)

type CleanJob struct {
	job  func() error
	kind jobType
}

func (cj CleanJob) Run() error {
	return cj.job()
}

// CleanStack is a stack of deferred cleanup jobs run in reverse push order.
type CleanStack struct {
	jobs []*CleanJob
}

func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// Push adds a job run on every Cleanup call
func (clean *CleanStack) Push(job func() error) {
	clean.jobs = append(clean.jobs, &CleanJob{job: job, kind: always})
}

// PushErrorOnly adds a job run only when Cleanup is invoked with a former error
func (clean *CleanStack) PushErrorOnly(job func() error) {
	clean.jobs = append(clean.jobs, &CleanJob{job: job, kind: errorOnly})
}

// PushSuccessOnly adds a job run only when Cleanup is invoked without a former error
func (clean *CleanStack) PushSuccessOnly(job func() error) {
	clean.jobs = append(clean.jobs, &CleanJob{job: job, kind: successOnly})
}

// Pop removes and returns the last pushed job, nil if the stack is empty
func (clean *CleanStack) Pop() *CleanJob {
	if len(clean.jobs) == 0 {
		return nil
	}
	job := clean.jobs[len(clean.jobs)-1]
	clean.jobs = clean.jobs[:len(clean.jobs)-1]
	return job
}

// Cleanup runs the whole stack in reverse order. The given error, if any,
// takes precedence; errors raised by the jobs themselves are joined to it
// and all jobs are run regardless of intermediate failures.
func (clean *CleanStack) Cleanup(err error) error {
	for job := clean.Pop(); job != nil; job = clean.Pop() {
		switch job.kind {
		case successOnly:
			if err == nil {
				err = errors.Join(err, job.Run())
			}
		case errorOnly:
			if err != nil {
				err = errors.Join(err, job.Run())
			}
		default:
			err = errors.Join(err, job.Run())
		}
	}
	return err
}
