// Package replay runs recorded hand samples through a fresh fusion engine,
// so toggle behaviour can be checked without a camera.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ayusman/tandava/internal/fusion"
	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/state"
)

// Record is one line of a replay file: a hand sample and its offset from
// the start of the recording.
type Record struct {
	hand.Sample
	TMs int64 `json:"t_ms"`
}

// At returns the record's offset.
func (r Record) At() time.Duration {
	return time.Duration(r.TMs) * time.Millisecond
}

// Read parses JSON lines. Blank lines and lines starting with # are
// skipped. Offsets must not go backwards.
func Read(r io.Reader) ([]Record, error) {
	var records []Record

	sc := bufio.NewScanner(r)
	line := 0
	var last int64
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.TMs < last {
			return nil, fmt.Errorf("line %d: t_ms %d before %d", line, rec.TMs, last)
		}
		last = rec.TMs
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return records, nil
}

// Toggle is a power flip produced during a replay.
type Toggle struct {
	Line    int // index into the replayed records
	At      time.Duration
	Y       float64
	PowerOn bool
}

// Result summarises a replay.
type Result struct {
	Samples int
	Toggles []Toggle
	PowerOn bool
	Hand    hand.Sample
}

// Run feeds records to a new engine backed by a new state store, starting
// with power off.
func Run(records []Record, cfg fusion.Config) Result {
	st := state.New()
	engine := fusion.NewEngine(cfg, st, st)

	start := time.Unix(0, 0)
	res := Result{}
	for i, rec := range records {
		out := engine.OnSample(rec.Sample, start.Add(rec.At()))
		res.Samples++
		if out.Toggled {
			res.Toggles = append(res.Toggles, Toggle{
				Line:    i,
				At:      rec.At(),
				Y:       rec.Y,
				PowerOn: out.PowerOn,
			})
		}
	}

	res.PowerOn = st.PowerOn()
	res.Hand = st.Hand()
	return res
}
