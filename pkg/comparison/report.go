package comparison

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// WriteReport prints the three summary lines of a comparison.
func (r *Result) WriteReport(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Relative speed-up: %v\nP-value of the Mann-Whitney U test: %v\nMean outbreak size: %v\n",
		r.SpeedUp, r.PValue, r.MeanOutbreakSize)
	return err
}

// WriteJSON writes the full result as indented JSON.
func (r *Result) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// jsonFloat encodes +Inf, -Inf and NaN as the strings the text report prints.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return json.Marshal(v)
}

// MarshalJSON keeps a zero event-driven time (speed-up +Inf or NaN) encodable.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		SpeedUp          jsonFloat `json:"speed_up"`
		PValue           jsonFloat `json:"p_value"`
		MeanOutbreakSize jsonFloat `json:"mean_outbreak_size"`
	}{
		plain:            plain(r),
		SpeedUp:          jsonFloat(r.SpeedUp),
		PValue:           jsonFloat(r.PValue),
		MeanOutbreakSize: jsonFloat(r.MeanOutbreakSize),
	})
}

func (t EngineTotals) MarshalJSON() ([]byte, error) {
	type plain EngineTotals
	return json.Marshal(struct {
		plain
		Elapsed jsonFloat `json:"elapsed"`
	}{
		plain:   plain(t),
		Elapsed: jsonFloat(t.Elapsed),
	})
}
