package classdecl

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// validator holds the compiled schema. A cue.Context is not safe for
// concurrent use, so every validation holds mu.
type validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	file cue.Value
}

var loadSchema = sync.OnceValues(func() (*validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("classdecl: compile schema: %w", err)
	}
	file := v.LookupPath(cue.ParsePath("#File"))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("classdecl: schema: %w", err)
	}
	return &validator{ctx: ctx, file: file}, nil
})

// SchemaError reports a declaration that does not match the schema.
type SchemaError struct {
	Details string
}

func (e *SchemaError) Error() string {
	return "schema violation: " + e.Details
}

// Validate checks decoded declaration data (maps, slices and scalars as
// produced by a YAML or TOML decoder) against the declaration schema.
func Validate(raw any) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.ctx.Encode(raw)
	if err := data.Err(); err != nil {
		return &SchemaError{Details: cueerrors.Details(err, nil)}
	}
	if err := s.file.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Details: cueerrors.Details(err, nil)}
	}
	return nil
}
