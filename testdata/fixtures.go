// Package testdata embeds recorded hand sessions used by tests and the
// replay command.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/ayusman/tandava/internal/replay"
)

//go:embed replay/*.jsonl
var replayFS embed.FS

// LoadReplay parses the named recording, e.g. "fist_drop".
func LoadReplay(name string) ([]replay.Record, error) {
	data, err := replayFS.ReadFile(path.Join("replay", name+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("load replay %s: %w", name, err)
	}

	records, err := replay.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse replay %s: %w", name, err)
	}
	return records, nil
}

// ReplayNames lists the embedded recordings.
func ReplayNames() ([]string, error) {
	entries, err := fs.ReadDir(replayFS, "replay")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(names)
	return names, nil
}
