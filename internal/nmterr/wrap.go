package nmterr

import "fmt"

// Wrap annotates a sentinel kind with call-site context while preserving
// errors.Is matching against kind.
func Wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}
