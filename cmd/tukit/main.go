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

package main

import (
	"log"
	"os"

	"github.com/suse/tukit/internal/cli/action"
	"github.com/suse/tukit/internal/cli/app"
	"github.com/suse/tukit/internal/cli/cmd"
)

func main() {
	a := app.New(
		cmd.Usage,
		cmd.GlobalFlags(),
		cmd.Setup,
		cmd.NewExecuteCommand(action.Execute),
		cmd.NewOpenCommand(action.Open),
		cmd.NewCallCommand(action.Call),
		cmd.NewCloseCommand(action.Close),
		cmd.NewAbortCommand(action.Abort),
		cmd.NewSnapshotsCommand(action.Snapshots),
	)

	if err := a.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
