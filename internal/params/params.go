package params

import (
	"math"

	"github.com/streamgate/controller/internal/stance"
	"github.com/streamgate/controller/internal/threshold"
)

// #region types

// Params are the recommended generation parameters for the next unit.
type Params struct {
	Temperature float64
	TopP        float64
}

// Config bounds parameter derivation.
type Config struct {
	BaseTemperature float64
	MinTemperature  float64
	MaxTemperature  float64
	BaseTopP        float64
	MinTopP         float64
	MaxTopP         float64
	ChangeEpsilon   float64 // temperature deltas under this do not notify
	BacktrackBump   float64 // temperature increase applied per backtrack
	TrendWindow     int     // confidence samples considered for the trend
}

// DefaultConfig returns the standard parameter bounds.
func DefaultConfig() Config {
	return Config{
		BaseTemperature: 0.7,
		MinTemperature:  0.1,
		MaxTemperature:  1.5,
		BaseTopP:        0.9,
		MinTopP:         0.5,
		MaxTopP:         1.0,
		ChangeEpsilon:   0.01,
		BacktrackBump:   0.1,
		TrendWindow:     5,
	}
}

// Change describes a parameter adjustment worth notifying about.
type Change struct {
	Old    Params
	New    Params
	Reason string
}

// #endregion types

// #region controller

// Controller derives dynamic generation parameters from confidence trend,
// phase/risk, and stance context. It runs after every accepted unit and
// after every rollback.
type Controller struct {
	config      Config
	current     Params
	confidences []float64 // recent accepted-unit confidences
	bump        float64   // accumulated backtrack temperature pressure
}

// NewController creates a controller at the base parameters.
func NewController(config Config) *Controller {
	return &Controller{
		config:  config,
		current: Params{Temperature: config.BaseTemperature, TopP: config.BaseTopP},
	}
}

// Current returns the active parameters.
func (c *Controller) Current() Params {
	return c.current
}

// #endregion controller

// #region observe

// ObserveUnit records an accepted unit's confidence for trend derivation.
func (c *Controller) ObserveUnit(conf float64) {
	c.confidences = append(c.confidences, conf)
	if w := c.config.TrendWindow; w > 0 && len(c.confidences) > w {
		c.confidences = c.confidences[len(c.confidences)-w:]
	}
}

// ObserveBacktrack raises temperature pressure so regeneration explores
// away from the discarded continuation.
func (c *Controller) ObserveBacktrack() {
	c.bump += c.config.BacktrackBump
}

// Reset drops all observed history and restores base parameters.
func (c *Controller) Reset() {
	c.confidences = nil
	c.bump = 0
	c.current = Params{Temperature: c.config.BaseTemperature, TopP: c.config.BaseTopP}
}

// #endregion observe

// #region derive

// Derive recomputes parameters from the observed trend plus the supplied
// stance, transform intensity, and threshold state. A non-nil Change is
// returned only when the temperature moved by more than the epsilon.
func (c *Controller) Derive(st *stance.Stance, tc *stance.TransformConfig, ts threshold.State) (Params, *Change) {
	temp := c.config.BaseTemperature

	// confidence trend: confident streams can afford exploration,
	// struggling ones get cooled
	switch trend := c.confidenceTrend(); {
	case trend > 0.8:
		temp *= 1.1
	case trend < 0.3:
		temp *= 0.9
	}

	// frame category
	if st != nil {
		switch st.Frame {
		case stance.FramePlayful, stance.FrameAbsurdist:
			temp += 0.15
		case stance.FramePragmatic, stance.FrameStoic:
			temp -= 0.15
		}
	}

	// transformation intensity: linear around the midpoint
	if tc != nil {
		temp += (tc.Intensity - 0.5) * 0.4
	}

	// backtrack pressure biases toward more exploratory regeneration
	temp += c.bump

	// recovery cools the stream regardless of everything above
	if ts.Risk == threshold.RiskCritical {
		temp -= threshold.SelectRecoveryStrategy(ts.Phase).TemperatureDrop
	}

	temp = clamp(temp, c.config.MinTemperature, c.config.MaxTemperature)

	// top-p follows temperature: wider sampling when hot
	span := c.config.MaxTemperature - c.config.MinTemperature
	topP := c.config.BaseTopP + 0.1*((temp-c.config.BaseTemperature)/span)
	topP = clamp(topP, c.config.MinTopP, c.config.MaxTopP)

	old := c.current
	next := Params{Temperature: temp, TopP: topP}
	c.current = next

	if math.Abs(next.Temperature-old.Temperature) > c.config.ChangeEpsilon {
		return next, &Change{Old: old, New: next, Reason: "temperature moved past epsilon"}
	}
	return next, nil
}

// confidenceTrend averages the recent window; an empty history reads as
// neutral.
func (c *Controller) confidenceTrend() float64 {
	if len(c.confidences) == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range c.confidences {
		sum += v
	}
	return sum / float64(len(c.confidences))
}

// #endregion derive

// #region helpers

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
