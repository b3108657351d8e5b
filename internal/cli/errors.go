package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"segsieve/internal/sieve"
)

// usageError marks failures caused by how the command was invoked; the
// command's usage is printed after them.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func isUsage(err error) bool {
	var u *usageError
	return errors.As(err, &u) || errors.Is(err, sieve.ErrInvalidInput)
}

// parseBound reads the single positional argument N.
func parseBound(args []string) (int, error) {
	if len(args) != 1 {
		return 0, usagef("expected exactly one argument N, got %d", len(args))
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, usagef("%w: N must be an integer, got %q", sieve.ErrInvalidInput, args[0])
	}
	if n < 0 {
		return 0, usagef("%w: N must be non-negative, got %d", sieve.ErrInvalidInput, n)
	}
	return n, nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}
