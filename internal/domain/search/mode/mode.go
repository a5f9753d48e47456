package mode

// Mode is the search strategy, either requested or actually executed.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses semantic and keyword retrieval. Default strategy.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
	// Fallback is the title substring match used when every primary strategy failed.
	Fallback Mode = "fallback"
	// Error is reported when the fallback failed too.
	Error Mode = "error"
)

// IsValid checks if the mode can be requested by a caller.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// IsExecuted checks if the mode is a value a response or log record may carry.
func (m Mode) IsExecuted() bool {
	return m.IsValid() || m == Fallback || m == Error
}
