package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify derives a low-cardinality tag value from an error for
// metrics. The innermost wrapped error carries the most signal, so the
// chain is unwrapped first, then the concrete type name is flattened
// (pgconn.PgError becomes "pgconn_pgerror").
func Classify(err error) string {
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(innermost(err))
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}

func innermost(err error) error {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
