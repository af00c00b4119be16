package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
)

// Registry holds the active type definitions. Lookups read an immutable
// snapshot and never lock. Every mutation builds a new snapshot and swaps it
// in, so readers never observe a partially registered type.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	types  map[string]typedefs.TypeDefinition
	guids  map[string]string
	enums  map[string]typedefs.EnumDefinition
	supers map[string][]string
}

type RegistryOption func(*Registry) error

// WithCatalog registers the contents of a catalog when the registry is created
func WithCatalog(cat *typedefs.Catalog) RegistryOption {
	return func(r *Registry) error {
		return r.RegisterCatalog(cat)
	}
}

func New(options ...RegistryOption) (*Registry, error) {
	r := &Registry{}
	r.current.Store(&snapshot{
		types:  map[string]typedefs.TypeDefinition{},
		guids:  map[string]string{},
		enums:  map[string]typedefs.EnumDefinition{},
		supers: map[string][]string{},
	})

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) RegisterType(def typedefs.TypeDefinition) error {
	return r.update(func(s *snapshot) error {
		return s.addType(def)
	})
}

func (r *Registry) RegisterEnum(def typedefs.EnumDefinition) error {
	return r.update(func(s *snapshot) error {
		return s.addEnum(def)
	})
}

// RegisterCatalog registers every enum and type in the catalog, or none of
// them if any definition is rejected. Types may be listed in any order as
// long as every supertype is part of the catalog or already registered.
func (r *Registry) RegisterCatalog(cat *typedefs.Catalog) error {
	if cat == nil {
		return errors.NewInvalidParameterError("nil catalog")
	}

	return r.update(func(s *snapshot) error {
		for _, e := range cat.Enums {
			if err := s.addEnum(e); err != nil {
				return err
			}
		}

		pending := slices.Clone(cat.Types)
		for len(pending) > 0 {
			deferred := pending[:0:0]

			for _, td := range pending {
				if s.waitsFor(td, pending) {
					deferred = append(deferred, td)
					continue
				}
				if err := s.addType(td); err != nil {
					return err
				}
			}

			if len(deferred) == len(pending) {
				return errors.NewInvalidParameterError(
					fmt.Sprintf("circular type dependency involving %s", deferred[0].Name),
				)
			}
			pending = deferred
		}

		return nil
	})
}

// waitsFor reports if td depends on a type that is still pending registration
func (s *snapshot) waitsFor(td typedefs.TypeDefinition, pending []typedefs.TypeDefinition) bool {
	deps := []string{td.SuperType}
	for _, end := range td.EndDefs {
		deps = append(deps, end.EntityType)
	}

	for _, dep := range deps {
		if dep == "" || dep == td.Name {
			continue
		}
		if _, ok := s.types[dep]; ok {
			continue
		}
		if slices.ContainsFunc(pending, func(p typedefs.TypeDefinition) bool { return p.Name == dep }) {
			return true
		}
	}

	return false
}

func (r *Registry) update(mutate func(s *snapshot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Load().clone()
	if err := mutate(next); err != nil {
		return err
	}

	next.rebuildSupertypes()
	r.current.Store(next)

	return nil
}

func (r *Registry) LookupType(name string) (typedefs.TypeDefinition, bool) {
	td, ok := r.current.Load().types[name]
	return td, ok
}

func (r *Registry) LookupTypeByGUID(guid string) (typedefs.TypeDefinition, bool) {
	s := r.current.Load()
	name, ok := s.guids[guid]
	if !ok {
		return typedefs.TypeDefinition{}, false
	}
	td, ok := s.types[name]
	return td, ok
}

func (r *Registry) LookupEnum(name string) (typedefs.EnumDefinition, bool) {
	ed, ok := r.current.Load().enums[name]
	return ed, ok
}

// TypeReference returns the reference used in instance headers for the named type
func (r *Registry) TypeReference(name string) (typedefs.TypeReference, error) {
	td, ok := r.LookupType(name)
	if !ok {
		return typedefs.TypeReference{}, errors.NewUnknownTypeError(name)
	}
	return td.Reference(), nil
}

// SuperTypes returns the supertype chain of a type, nearest first
func (r *Registry) SuperTypes(name string) []string {
	return slices.Clone(r.current.Load().supers[name])
}

// IsTypeOf reports if name is ancestor or one of its subtypes
func (r *Registry) IsTypeOf(name, ancestor string) bool {
	if name == ancestor {
		_, ok := r.LookupType(name)
		return ok
	}
	return slices.Contains(r.current.Load().supers[name], ancestor)
}

// AllAttributes returns the attributes of a type including the inherited
// ones. Attributes of the most distant supertype come first.
func (r *Registry) AllAttributes(name string) []typedefs.AttributeDef {
	s := r.current.Load()

	td, ok := s.types[name]
	if !ok {
		return nil
	}

	chain := s.supers[name]
	attrs := []typedefs.AttributeDef{}

	for i := len(chain) - 1; i >= 0; i-- {
		attrs = append(attrs, s.types[chain[i]].Attributes...)
	}

	return append(attrs, td.Attributes...)
}

// UniquePropertyNames returns the names of the attributes that are flagged
// as unique for the type or any of its supertypes
func (r *Registry) UniquePropertyNames(name string) []string {
	names := []string{}
	for _, a := range r.AllAttributes(name) {
		if a.Unique {
			names = append(names, a.Name)
		}
	}
	return names
}

func (r *Registry) TypeNames() []string {
	return slices.Sorted(maps.Keys(r.current.Load().types))
}

// ValidateRelationshipEnds checks that the entity types at each end are
// compatible with the end definitions of the relationship type
func (r *Registry) ValidateRelationshipEnds(relationshipType, end1Type, end2Type string) error {
	td, ok := r.LookupType(relationshipType)
	if !ok {
		return errors.NewUnknownTypeError(relationshipType)
	}

	if td.Category != typedefs.RelationshipDef {
		return errors.NewTypeMismatchError(string(typedefs.RelationshipDef), string(td.Category))
	}

	for idx, endType := range []string{end1Type, end2Type} {
		expected := td.EndDefs[idx].EntityType
		if !r.IsTypeOf(endType, expected) {
			return errors.NewInvalidInstanceError(
				fmt.Sprintf("end %d of relationship type %s must be a %s, not %q", idx+1, relationshipType, expected, endType),
			)
		}
	}

	return nil
}

func (s *snapshot) clone() *snapshot {
	return &snapshot{
		types:  maps.Clone(s.types),
		guids:  maps.Clone(s.guids),
		enums:  maps.Clone(s.enums),
		supers: map[string][]string{},
	}
}

func (s *snapshot) addType(td typedefs.TypeDefinition) error {
	if err := td.Validate(); err != nil {
		return errors.NewInvalidParameterError(err.Error())
	}

	if existing, ok := s.types[td.Name]; ok {
		if existing.GUID != td.GUID {
			return errors.NewAlreadyExistsError(
				fmt.Sprintf("type %s is already registered with guid %s", td.Name, existing.GUID),
			)
		}
		if td.Version == existing.Version {
			return nil
		}
		if td.Version < existing.Version {
			return errors.NewAlreadyExistsError(
				fmt.Sprintf("type %s version %d is already registered", td.Name, existing.Version),
			)
		}
	}

	if name, ok := s.guids[td.GUID]; ok && name != td.Name {
		return errors.NewAlreadyExistsError(fmt.Sprintf("guid %s is already used by type %s", td.GUID, name))
	}

	if td.SuperType != "" {
		super, ok := s.types[td.SuperType]
		if !ok {
			return errors.NewUnknownTypeError(td.SuperType)
		}
		if super.Category != td.Category {
			return errors.NewTypeMismatchError(string(td.Category), string(super.Category))
		}
	}

	if td.Category == typedefs.RelationshipDef {
		for _, end := range td.EndDefs {
			if _, ok := s.types[end.EntityType]; !ok {
				return errors.NewUnknownTypeError(end.EntityType)
			}
		}
	}

	s.types[td.Name] = td
	s.guids[td.GUID] = td.Name

	return nil
}

func (s *snapshot) addEnum(ed typedefs.EnumDefinition) error {
	if ed.Name == "" {
		return errors.NewInvalidParameterError("enum definition without a name")
	}

	if existing, ok := s.enums[ed.Name]; ok && existing.GUID != ed.GUID {
		return errors.NewAlreadyExistsError(
			fmt.Sprintf("enum %s is already registered with guid %s", ed.Name, existing.GUID),
		)
	}

	s.enums[ed.Name] = ed
	return nil
}

func (s *snapshot) rebuildSupertypes() {
	for name := range s.types {
		chain := []string{}
		visited := map[string]struct{}{name: {}}

		for super := s.types[name].SuperType; super != ""; super = s.types[super].SuperType {
			if _, loop := visited[super]; loop {
				break
			}
			visited[super] = struct{}{}
			chain = append(chain, super)
		}

		s.supers[name] = chain
	}
}
