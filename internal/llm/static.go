// internal/llm/static.go
package llm

import (
	"context"
	"fmt"
)

// StaticGenerator returns a canned response immediately. Useful for local
// development without an API key and for exercising the response pipeline in
// tests.
type StaticGenerator struct {
	// Response, when non-empty, is returned verbatim. Otherwise a templated
	// line echoing the inputs is produced.
	Response string

	// Err, when non-nil, is returned instead of a response.
	Err error
}

func (g *StaticGenerator) Generate(ctx context.Context, question, persona, action string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	if g.Response != "" {
		return g.Response, nil
	}
	return fmt.Sprintf("(canned) %q, answered in character: %s / %s", question, persona, action), nil
}
