package unmix

// Mode selects between training-time and inference-time behavior.
// It replaces ambient per-parameter gradient flags: normalization layers use
// batch statistics in ModeTraining and running statistics in ModeInference.
type Mode int

const (
	// ModeTraining uses batch statistics and keeps parameters trainable.
	ModeTraining Mode = iota
	// ModeInference uses running statistics; entered irreversibly via Freeze.
	ModeInference
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeTraining:
		return "training"
	case ModeInference:
		return "inference"
	default:
		return "unknown"
	}
}
