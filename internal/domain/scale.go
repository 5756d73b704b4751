package domain

// MaxScaleOptions caps how many vote tokens one scale may carry.
const MaxScaleOptions = 20

type ScaleKind string

const (
	ScalePreset ScaleKind = "preset"
	ScaleCustom ScaleKind = "custom"
)

// ScaleConfig is the scale selection as the client sent it.
type ScaleConfig struct {
	Kind   ScaleKind `json:"type"`
	Name   string    `json:"name,omitempty"`
	Values []string  `json:"values,omitempty"`
}

// ResolvedScale keeps the original selection next to the concrete card list
// so clients can render both.
type ResolvedScale struct {
	Config ScaleConfig `json:"config"`
	Cards  []string    `json:"currentValues"`
}

var votingPresets = map[string][]string{
	"fibonacci":   {"0", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89", "?", "☕"},
	"tshirt":      {"XS", "S", "M", "L", "XL", "XXL", "?", "☕"},
	"powersOfTwo": {"0", "1", "2", "4", "8", "16", "32", "64", "?", "☕"},
}

// DefaultScaleConfig is the fallback for missing or invalid selections.
func DefaultScaleConfig() ScaleConfig {
	return ScaleConfig{Kind: ScalePreset, Name: "fibonacci"}
}

// PresetNames lists the known presets.
func PresetNames() []string {
	return []string{"fibonacci", "tshirt", "powersOfTwo"}
}

// ResolveScale turns a selection into a concrete ordered card list.
// Custom values are deduplicated in order and capped at MaxScaleOptions.
// Anything invalid or empty resolves to the default preset, so the result
// always has at least one card.
func ResolveScale(cfg ScaleConfig) ResolvedScale {
	var cards []string
	switch {
	case cfg.Kind == ScalePreset && votingPresets[cfg.Name] != nil:
		cards = votingPresets[cfg.Name]
	case cfg.Kind == ScaleCustom && len(cfg.Values) > 0:
		cards = dedupe(cfg.Values)
	}
	if len(cards) == 0 {
		cfg = DefaultScaleConfig()
		cards = votingPresets[cfg.Name]
	}
	if len(cards) > MaxScaleOptions {
		cards = cards[:MaxScaleOptions]
	}
	out := make([]string, len(cards))
	copy(out, cards)
	return ResolvedScale{Config: cfg, Cards: out}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
