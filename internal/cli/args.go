package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqldb/internal/sqldb"
)

// parseArg converts a command-line value to a bind parameter. Integers and
// floats bind as numbers, NULL binds as nil, anything else as text.
func parseArg(s string) any {
	if s == "NULL" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = parseArg(a)
	}
	return out
}

// parseAssignments turns col=val pairs into Values, keeping their order.
func parseAssignments(pairs []string) (*sqldb.Values, error) {
	values := sqldb.NewValues()
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q: want column=value", p)
		}
		values.Put(col, parseArg(val))
	}
	return values, nil
}
