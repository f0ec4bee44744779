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

package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

type OpenFlags struct {
	Base string
}

var OpenArgs OpenFlags

func NewOpenCommand(action func(*cli.Context) error) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Start a new transaction and keep it open for later calls",
		UsageText: fmt.Sprintf("%s open [OPTIONS]", appName()),
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "base",
				Aliases:     []string{"b"},
				Usage:       "Base snapshot id, or one of 'active' and 'default'",
				Value:       "active",
				Destination: &OpenArgs.Base,
			},
		},
	}
}
