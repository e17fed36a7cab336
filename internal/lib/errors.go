package lib

import "fmt"

// WrapError wraps the cause error into a sentinel error, so both can be
// matched with errors.Is
func WrapError(sentinel error, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
