package metamodel

import (
	"fmt"
	"sort"

	"github.com/arcadia-eng/designdb/internal/model"
)

// ComponentDef describes the data shape of one component kind: the
// attribute names an instance may carry and the value type of each.
// Attributes are individually optional; a present attribute must match its
// declared type or be Null.
type ComponentDef struct {
	Kind       model.ComponentKind
	Attributes map[string]model.ValueType
}

// ObjectType declares which component kinds an object of one type must and
// may carry.
type ObjectType struct {
	Name     string
	Required []model.ComponentKind
	Optional []model.ComponentKind
}

// AllKinds returns the union of required and optional kinds, sorted.
func (t *ObjectType) AllKinds() []model.ComponentKind {
	kinds := make([]model.ComponentKind, 0, len(t.Required)+len(t.Optional))
	kinds = append(kinds, t.Required...)
	kinds = append(kinds, t.Optional...)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (t *ObjectType) declares(kind model.ComponentKind) bool {
	for _, k := range t.Required {
		if k == kind {
			return true
		}
	}
	for _, k := range t.Optional {
		if k == kind {
			return true
		}
	}
	return false
}

// Metamodel is the schema of a design: component kind definitions plus the
// per-type component requirements. Declared once, then read-only for the
// session.
type Metamodel struct {
	name       string
	components map[model.ComponentKind]*ComponentDef
	types      map[string]*ObjectType
}

// New creates an empty metamodel with the given name. The name is recorded
// in the persisted header so a file cannot be silently opened with an
// incompatible schema.
func New(name string) *Metamodel {
	return &Metamodel{
		name:       name,
		components: make(map[model.ComponentKind]*ComponentDef),
		types:      make(map[string]*ObjectType),
	}
}

// Name returns the metamodel name.
func (m *Metamodel) Name() string { return m.name }

// DeclareComponent registers the data shape of one component kind.
// Redeclaring a kind is a schema violation.
func (m *Metamodel) DeclareComponent(kind model.ComponentKind, attrs map[string]model.ValueType) error {
	if _, dup := m.components[kind]; dup {
		return &SchemaViolationError{
			Reason: fmt.Sprintf("component kind %q declared twice", kind),
		}
	}
	copied := make(map[string]model.ValueType, len(attrs))
	for name, vt := range attrs {
		switch vt {
		case model.TypeBool, model.TypeInt, model.TypeFloat, model.TypeString,
			model.TypePoint, model.TypeRef, model.TypeRefList:
		default:
			return &SchemaViolationError{
				Reason: fmt.Sprintf("component %q attribute %q has unknown value type %q", kind, name, vt),
			}
		}
		copied[name] = vt
	}
	m.components[kind] = &ComponentDef{Kind: kind, Attributes: copied}
	return nil
}

// DeclareType registers an object type with its required and optional
// component kinds. Referencing an undeclared component kind is a schema
// violation.
func (m *Metamodel) DeclareType(name string, required, optional []model.ComponentKind) error {
	if _, dup := m.types[name]; dup {
		return &SchemaViolationError{
			TypeName: name,
			Reason:   "type declared twice",
		}
	}
	var undeclared []model.ComponentKind
	for _, kind := range append(append([]model.ComponentKind{}, required...), optional...) {
		if _, ok := m.components[kind]; !ok {
			undeclared = append(undeclared, kind)
		}
	}
	if len(undeclared) > 0 {
		return &SchemaViolationError{
			TypeName:   name,
			Undeclared: undeclared,
			Reason:     "type references undeclared component kinds",
		}
	}
	m.types[name] = &ObjectType{
		Name:     name,
		Required: append([]model.ComponentKind{}, required...),
		Optional: append([]model.ComponentKind{}, optional...),
	}
	return nil
}

// Type looks up an object type by name.
func (m *Metamodel) Type(name string) (*ObjectType, bool) {
	t, ok := m.types[name]
	return t, ok
}

// Component looks up a component definition by kind.
func (m *Metamodel) Component(kind model.ComponentKind) (*ComponentDef, bool) {
	c, ok := m.components[kind]
	return c, ok
}

// TypeNames returns the declared type names, sorted.
func (m *Metamodel) TypeNames() []string {
	names := make([]string, 0, len(m.types))
	for name := range m.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComponentKinds returns the declared component kinds, sorted.
func (m *Metamodel) ComponentKinds() []model.ComponentKind {
	kinds := make([]model.ComponentKind, 0, len(m.components))
	for kind := range m.components {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Validate checks a component kind set against a type: every required kind
// must be present and no undeclared kind may appear. Returns
// UnknownTypeError or SchemaViolationError.
func (m *Metamodel) Validate(typeName string, kinds []model.ComponentKind) error {
	t, ok := m.types[typeName]
	if !ok {
		return &UnknownTypeError{TypeName: typeName}
	}

	present := make(map[model.ComponentKind]bool, len(kinds))
	for _, kind := range kinds {
		present[kind] = true
	}

	var missing []model.ComponentKind
	for _, kind := range t.Required {
		if !present[kind] {
			missing = append(missing, kind)
		}
	}
	var undeclared []model.ComponentKind
	for _, kind := range kinds {
		if !t.declares(kind) {
			undeclared = append(undeclared, kind)
		}
	}
	if len(missing) > 0 || len(undeclared) > 0 {
		return &SchemaViolationError{
			TypeName:   typeName,
			Missing:    missing,
			Undeclared: undeclared,
		}
	}
	return nil
}

// ValidateSnapshot checks a full snapshot: the component kind set per
// Validate, then each bundle's attributes against the component
// definitions. Null is accepted for any declared attribute type.
func (m *Metamodel) ValidateSnapshot(s *model.ObjectSnapshot) error {
	if err := m.Validate(s.TypeName(), s.ComponentKinds()); err != nil {
		if sv, ok := err.(*SchemaViolationError); ok {
			sv.Object = s.ObjectID()
		}
		return err
	}
	for _, kind := range s.ComponentKinds() {
		def := m.components[kind]
		data, _ := s.Component(kind)
		if err := m.validateData(def, data); err != nil {
			return &SchemaViolationError{
				TypeName: s.TypeName(),
				Object:   s.ObjectID(),
				Reason:   fmt.Sprintf("component %q: %v", kind, err),
			}
		}
	}
	return nil
}

func (m *Metamodel) validateData(def *ComponentDef, data model.ComponentData) error {
	for _, name := range data.AttributeNames() {
		declared, ok := def.Attributes[name]
		if !ok {
			return fmt.Errorf("undeclared attribute %q", name)
		}
		v, _ := data.Get(name)
		actual, typed := model.TypeOf(v)
		if !typed {
			continue // Null is valid for any attribute
		}
		if actual != declared {
			return fmt.Errorf("attribute %q: got %s, declared %s", name, actual, declared)
		}
	}
	return nil
}
