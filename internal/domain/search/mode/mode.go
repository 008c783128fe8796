package mode

// Mode is the matching strategy.
type Mode string

// Match mode constants.
const (
	// Semantic ranks with the weighted lexical/metadata/structural/proximity score.
	Semantic Mode = "semantic"
	// Fuzzy ranks by approximate string similarity against a composite of the entry text.
	Fuzzy Mode = "fuzzy"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Semantic || m == Fuzzy
}

// FromFlag maps the boolean semantic switch used in configuration to a mode.
func FromFlag(semantic bool) Mode {
	if semantic {
		return Semantic
	}
	return Fuzzy
}
