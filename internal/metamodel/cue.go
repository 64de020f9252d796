package metamodel

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/arcadia-eng/designdb/internal/model"
)

// CompileError reports a problem in a CUE metamodel declaration, with the
// source position when CUE can provide one.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads a CUE metamodel declaration from disk and compiles it.
//
// The expected shape:
//
//	metamodel: {
//		name: "flows"
//		components: {
//			Description: {attributes: {text: "string"}}
//			Flow:        {attributes: {expression: "string"}}
//		}
//		types: {
//			Stock: {required: ["Description", "Flow"], optional: []}
//		}
//	}
func LoadFile(path string) (*Metamodel, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load metamodel: %w", err)
	}
	return CompileString(string(src))
}

// CompileString compiles a CUE metamodel declaration from source text.
func CompileString(src string) (*Metamodel, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError("metamodel", err)
	}
	return Compile(v.LookupPath(cue.ParsePath("metamodel")))
}

// Compile parses a CUE value holding the metamodel struct.
func Compile(v cue.Value) (*Metamodel, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "metamodel", Message: "metamodel struct is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError("metamodel", err)
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError("name", err)
	}

	m := New(name)

	if err := compileComponents(m, v.LookupPath(cue.ParsePath("components"))); err != nil {
		return nil, err
	}
	if err := compileTypes(m, v.LookupPath(cue.ParsePath("types"))); err != nil {
		return nil, err
	}
	if len(m.TypeNames()) == 0 {
		return nil, &CompileError{Field: "types", Message: "at least one type is required", Pos: v.Pos()}
	}
	return m, nil
}

func compileComponents(m *Metamodel, v cue.Value) error {
	if !v.Exists() {
		return &CompileError{Field: "components", Message: "components struct is required"}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError("components", err)
	}
	for iter.Next() {
		kind := iter.Selector().Unquoted()
		attrs, err := compileAttributes(kind, iter.Value().LookupPath(cue.ParsePath("attributes")))
		if err != nil {
			return err
		}
		if err := m.DeclareComponent(model.ComponentKind(kind), attrs); err != nil {
			return &CompileError{
				Field:   fmt.Sprintf("components.%s", kind),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func compileAttributes(kind string, v cue.Value) (map[string]model.ValueType, error) {
	attrs := make(map[string]model.ValueType)
	if !v.Exists() {
		return attrs, nil // components without attributes are markers
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(fmt.Sprintf("components.%s.attributes", kind), err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		typeName, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(fmt.Sprintf("components.%s.attributes.%s", kind, name), err)
		}
		attrs[name] = model.ValueType(typeName)
	}
	return attrs, nil
}

func compileTypes(m *Metamodel, v cue.Value) error {
	if !v.Exists() {
		return &CompileError{Field: "types", Message: "types struct is required"}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError("types", err)
	}
	for iter.Next() {
		typeName := iter.Selector().Unquoted()
		required, err := compileKindList(typeName, "required", iter.Value())
		if err != nil {
			return err
		}
		optional, err := compileKindList(typeName, "optional", iter.Value())
		if err != nil {
			return err
		}
		if err := m.DeclareType(typeName, required, optional); err != nil {
			return &CompileError{
				Field:   fmt.Sprintf("types.%s", typeName),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func compileKindList(typeName, field string, v cue.Value) ([]model.ComponentKind, error) {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(fmt.Sprintf("types.%s.%s", typeName, field), err)
	}
	var kinds []model.ComponentKind
	for iter.Next() {
		kind, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(fmt.Sprintf("types.%s.%s", typeName, field), err)
		}
		kinds = append(kinds, model.ComponentKind(kind))
	}
	return kinds, nil
}

func formatCUEError(field string, err error) error {
	var pos token.Pos
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		pos = errs[0].Position()
	}
	return &CompileError{
		Field:   field,
		Message: cueerrors.Details(err, nil),
		Pos:     pos,
	}
}
