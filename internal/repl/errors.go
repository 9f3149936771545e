package repl

import "fmt"

// InputError reports a failure of the input stream other than clean closure.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read input: %v", e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
