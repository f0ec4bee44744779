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
)

// Call runs a command in an open transaction, keeping the snapshot open
// afterwards regardless of the command's exit status.
func Call(ctx *cli.Context) error {
	s, err := getSystem(ctx)
	if err != nil {
		return err
	}
	if ctx.Args().Len() < 2 {
		return fmt.Errorf("usage: call SNAPSHOT COMMAND [ARGS...]")
	}

	t, err := newTransaction(ctx, s)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if err = t.Open(ctx.Args().First()); err != nil {
		s.Logger().Error("failed resuming transaction: %v", err)
		return err
	}

	args := ctx.Args().Tail()
	status, err := t.Execute(args[0], args[1:]...)
	if err != nil {
		s.Logger().Error("failed executing command: %v", err)
		return err
	}

	if err = t.Keep(); err != nil {
		return err
	}
	if status != 0 {
		return cli.Exit(fmt.Sprintf("command failed with exit status %d", status), status)
	}
	return nil
}
