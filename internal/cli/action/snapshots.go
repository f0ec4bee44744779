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
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/suse/tukit/pkg/snapper"
)

// Snapshots prints the snapshot list with markers for the active (*) and
// default (+) snapshots.
func Snapshots(ctx *cli.Context) error {
	s, err := getSystem(ctx)
	if err != nil {
		return err
	}

	snaps, err := snapper.New(s).ListSnapshots()
	if err != nil {
		s.Logger().Error("failed listing snapshots: %v", err)
		return err
	}

	w := tabwriter.NewWriter(ctx.App.Writer, 1, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Snapshot\tFlags\tUserdata")
	for _, snap := range snaps {
		flags := ""
		if snap.Active {
			flags += "*"
		}
		if snap.Default {
			flags += "+"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", snap.Number, flags, snap.UserData.String())
	}
	return w.Flush()
}
