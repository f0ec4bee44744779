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

// Execute runs a command in a fresh transaction. The transaction is
// committed when the command exits with status zero and discarded
// otherwise, the command's exit status becomes the process exit status.
func Execute(ctx *cli.Context) error {
	s, err := getSystem(ctx)
	if err != nil {
		return err
	}
	if ctx.Args().Len() == 0 {
		return fmt.Errorf("missing command to execute")
	}

	t, err := newTransaction(ctx, s)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if err = t.Init(cmd.ExecuteArgs.Base); err != nil {
		s.Logger().Error("failed starting transaction: %v", err)
		return err
	}
	snapID := t.Snapshot()

	status, err := t.Execute(ctx.Args().First(), ctx.Args().Tail()...)
	if err != nil {
		s.Logger().Error("failed executing command: %v", err)
		return err
	}
	if status != 0 {
		return cli.Exit(fmt.Sprintf("command failed with exit status %d, discarding snapshot %s", status, snapID), status)
	}

	if err = t.Finalize(); err != nil {
		s.Logger().Error("failed committing transaction: %v", err)
		return err
	}

	fmt.Fprintln(ctx.App.Writer, snapID)
	return nil
}
