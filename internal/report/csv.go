package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/banshee-data/trackscan/internal/scan"
)

// WriteTrialsCSV writes one row per trial: number, state, value, every
// parameter seen in any trial (sorted by name), the last reported step and
// the trial duration in milliseconds. Missing values are left empty.
func WriteTrialsCSV(w io.Writer, trials []scan.TrialRecord) error {
	paramSet := make(map[string]struct{})
	for _, tr := range trials {
		for name := range tr.Params {
			paramSet[name] = struct{}{}
		}
	}
	params := make([]string, 0, len(paramSet))
	for name := range paramSet {
		params = append(params, name)
	}
	sort.Strings(params)

	cw := csv.NewWriter(w)
	header := append([]string{"number", "state", "value"}, params...)
	header = append(header, "last_step", "duration_ms")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tr := range trials {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(tr.Number), tr.State.String(), formatFloat(tr.Value))
		for _, name := range params {
			v, ok := tr.Params[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatFloat(v))
		}
		step := ""
		if last := tr.LastStep(); last >= 0 {
			step = strconv.Itoa(last)
		}
		row = append(row, step, strconv.FormatInt(tr.Duration().Milliseconds(), 10))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing trial %d: %w", tr.Number, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
