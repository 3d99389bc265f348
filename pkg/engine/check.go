package engine

import (
	"fmt"
	"strings"

	"github.com/aretw0/atsim/pkg/domain"
	"go.uber.org/multierr"
)

// Check compiles every script of m without running it and reports all
// syntax errors at once.
func (e *Engine) Check(m *domain.Model) error {
	var errs error
	compile := func(src, name string) {
		if strings.TrimSpace(src) == "" {
			return
		}
		if _, err := e.cache.compile(src, name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	for _, f := range m.Functions {
		compile(fmt.Sprintf("function %s(%s)\n%s\nend", f.Name, strings.Join(f.Params, ", "), f.Body), "function "+f.Name)
	}
	for _, t := range m.Templates {
		if strings.TrimSpace(t.Condition) != "" {
			compile("return ("+t.Condition+")", "template "+t.Name+" condition")
		}
		compile(t.Body, "template "+t.Name+" body")
		compile(t.BodyBefore, "template "+t.Name+" body_before")
		compile(t.BodyAfter, "template "+t.Name+" body_after")
	}

	if errs != nil {
		return fmt.Errorf("model %d: %w: %w", m.ID, domain.ErrInvalidArgument, errs)
	}
	return nil
}
