package repl

// EvalFunc transforms one line of input into the text to print.
type EvalFunc func(input string) string

// Identity returns its input unchanged.
func Identity(input string) string {
	return input
}
