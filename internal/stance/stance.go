package stance

// #region frame

// Frame identifies the active conversational frame supplied by the caller.
type Frame string

const (
	FrameNone       Frame = ""
	FramePlayful    Frame = "playful"
	FrameAbsurdist  Frame = "absurdist"
	FramePragmatic  Frame = "pragmatic"
	FrameStoic      Frame = "stoic"
	FrameAnalytical Frame = "analytical"
	FrameEmpathetic Frame = "empathetic"
)

// #endregion frame

// #region stance

// Stance carries external conversational context into coherence scoring,
// phase detection, and parameter derivation. The controller never mutates it.
type Stance struct {
	Frame           Frame
	Values          []string // declared stance values, matched against output text
	CumulativeDrift float64  // 0-100 drift accumulated by the caller's drift tracker
	Operators       []string // recent transformation operators, most recent last
}

// Clone returns a deep copy so subscribers and history never alias caller slices.
func (s Stance) Clone() Stance {
	out := s
	out.Values = append([]string(nil), s.Values...)
	out.Operators = append([]string(nil), s.Operators...)
	return out
}

// #endregion stance

// #region transform-config

// TransformConfig describes the caller's transformation settings that scale
// generation parameters.
type TransformConfig struct {
	Intensity float64 // 0-1, linear scale factor on temperature
}

// #endregion transform-config
