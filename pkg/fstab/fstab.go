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

package fstab

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/suse/tukit/pkg/sys"
	"github.com/suse/tukit/pkg/sys/vfs"
)

const File = "/etc/fstab"

type Line struct {
	Device     string
	MountPoint string
	FileSystem string
	Options    []string
	DumpFreq   int
	FsckOrder  int
}

// Write writes an fstab file at the given location including the given fstab lines
func Write(s *sys.System, fstabFile string, fstabLines []Line) (err error) {
	fstab, err := s.FS().Create(fstabFile)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		e := fstab.Close()
		if err == nil && e != nil {
			err = fmt.Errorf("closing file: %w", e)
		}
	}()

	err = writeFstabLines(fstab, fstabLines)
	if err != nil {
		return fmt.Errorf("writing content: %w", err)
	}

	return nil
}

// Read parses the given fstab file. A missing file is not an error,
// it parses to an empty set of lines.
func Read(s *sys.System, fstabFile string) ([]Line, error) {
	ok, err := vfs.Exists(s.FS(), fstabFile, true)
	if err != nil {
		return nil, fmt.Errorf("checking file: %w", err)
	}
	if !ok {
		return nil, nil
	}

	f, err := s.FS().Open(fstabFile)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var fstabLines []Line
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fstabLine, err := fstabLineFromFields(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("invalid fstab line '%s': %w", line, err)
		}
		fstabLines = append(fstabLines, fstabLine)
	}
	return fstabLines, scanner.Err()
}

// Set updates the line matching the given mount point in the given
// fstab file, or appends it if no line matches. The file is created if missing.
func Set(s *sys.System, fstabFile string, line Line) error {
	fstabLines, err := Read(s, fstabFile)
	if err != nil {
		return err
	}

	replaced := false
	for i, fLine := range fstabLines {
		if fLine.MountPoint == line.MountPoint {
			fstabLines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		fstabLines = append(fstabLines, line)
	}

	return Write(s, fstabFile, fstabLines)
}

func writeFstabLines(w io.Writer, fstabLines []Line) error {
	tw := tabwriter.NewWriter(w, 1, 4, 1, ' ', 0)
	for _, fLine := range fstabLines {
		_, err := fmt.Fprintf(
			tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			fLine.Device, fLine.MountPoint, fLine.FileSystem,
			strings.Join(fLine.Options, ","), fLine.DumpFreq, fLine.FsckOrder,
		)
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}

func fstabLineFromFields(fields []string) (Line, error) {
	var fstabLine Line
	if len(fields) != 6 {
		return fstabLine, fmt.Errorf("invalid number of fields for fstab line")
	}
	dumpFreq, err := strconv.Atoi(fields[4])
	if err != nil {
		return fstabLine, fmt.Errorf("invalid dump frequency value in fstab line '%s'", fields[4])
	}
	fsckOrder, err := strconv.Atoi(fields[5])
	if err != nil {
		return fstabLine, fmt.Errorf("invalid filesystem check order value in fstab line '%s'", fields[5])
	}
	fstabLine.Device = fields[0]
	fstabLine.MountPoint = fields[1]
	fstabLine.FileSystem = fields[2]
	fstabLine.Options = strings.Split(fields[3], ",")
	fstabLine.DumpFreq = dumpFreq
	fstabLine.FsckOrder = fsckOrder

	return fstabLine, nil
}
