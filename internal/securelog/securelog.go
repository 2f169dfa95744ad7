// Package securelog logs failures without leaking chat content. Message
// bodies, display names and addresses never belong in logs; callers pass
// an operation name and the log line carries only that, the caller
// location and the error type chain.
package securelog

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
)

// Error logs err against an operation name. The error message itself is
// not logged, only the chain of error types, so wrapped user input stays
// out of the log.
func Error(op string, err error) {
	if err == nil {
		return
	}
	log.Printf("error op=%s at %s types=%s", op, caller(2), typeChain(err))
}

// Recovered logs a panic value recovered from a listener callback. Only
// the dynamic type is recorded.
func Recovered(op string, v any) {
	if v == nil {
		return
	}
	log.Printf("panic op=%s at %s type=%T", op, caller(2), v)
}

func caller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d %s", file, line, name)
}

func typeChain(err error) string {
	var types []string
	seen := map[string]struct{}{}
	for err != nil {
		name := fmt.Sprintf("%T", err)
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			types = append(types, name)
		}
		err = errors.Unwrap(err)
	}
	return strings.Join(types, "->")
}
