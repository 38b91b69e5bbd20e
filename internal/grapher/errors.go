package grapher

import "fmt"

// InvalidArgumentError reports an engine argument outside its documented
// domain: a threshold outside [0,1], a ratio outside (0,1], or a pattern
// that does not compile.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("grapher: invalid %s: %s", e.Field, e.Reason)
}
