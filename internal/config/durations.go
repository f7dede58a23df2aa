package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// decodeDurations fills the typed duration fields from their raw attributes.
func (a *Application) decodeDurations() error {
	if a.Performance != nil {
		d, err := durationValue(a.Performance.RawSampleInterval)
		if err != nil {
			return fmt.Errorf("performance.sample_interval: %w", err)
		}
		a.Performance.SampleInterval = d
	}
	if a.Pool != nil {
		d, err := durationValue(a.Pool.RawIdleTTL)
		if err != nil {
			return fmt.Errorf("pool.idle_ttl: %w", err)
		}
		a.Pool.IdleTTL = d
	}
	return nil
}

// durationValue reads a duration written as a Go duration string ("1m30s")
// or as a number of seconds. A missing or null value yields zero.
func durationValue(v cty.Value) (time.Duration, error) {
	if v.IsNull() {
		return 0, nil
	}
	if !v.IsKnown() {
		return 0, errors.New("value is not known")
	}
	if v.Type() == cty.Number {
		var secs float64
		if err := gocty.FromCtyValue(v, &secs); err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return 0, fmt.Errorf("want a duration string or a number of seconds: %w", err)
	}
	d, err := time.ParseDuration(s.AsString())
	if err != nil {
		return 0, err
	}
	return d, nil
}
