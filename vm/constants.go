package vm

// Depth limits, the way the teacher bounds recursion-shaped state in
// constants.go (antibyte-retroterm/pkg/tinybasic/constants.go) rather than
// letting a runaway program exhaust memory silently.
const (
	MaxGosubDepth   = 256
	MaxForLoopDepth = 256
)
