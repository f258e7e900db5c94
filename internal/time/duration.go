package time

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes as "1m30s" in JSON.
// Bare numbers are read as seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err == nil {
		*d = Duration(seconds * float64(time.Second))
		return nil
	}

	var dText string
	err := json.Unmarshal(data, &dText)
	if err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}

	dt, err := time.ParseDuration(dText)
	if err != nil {
		return err
	}

	*d = Duration(dt)
	return nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Or returns fallback when d is not positive.
func (d Duration) Or(fallback time.Duration) Duration {
	if d <= 0 {
		return Duration(fallback)
	}

	return d
}
