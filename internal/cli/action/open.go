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

package action

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/suse/tukit/internal/cli/cmd"
)

// Open starts a transaction and detaches from it, printing the snapshot
// id for later call, close or abort invocations.
func Open(ctx *cli.Context) error {
	s, err := getSystem(ctx)
	if err != nil {
		return err
	}

	t, err := newTransaction(ctx, s)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if err = t.Init(cmd.OpenArgs.Base); err != nil {
		s.Logger().Error("failed starting transaction: %v", err)
		return err
	}
	snapID := t.Snapshot()

	if err = t.Keep(); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, snapID)
	return nil
}
