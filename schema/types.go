package schema

import (
	"strings"

	"github.com/anirudhraja/tagwire/wire"
)

// Repo represents a collection of schema files and their definitions.
type Repo struct {
	Files map[string]*File `json:"files"`
}

// File represents a single .proto file
type File struct {
	Name      string      `json:"name"`      // file.proto
	Package   string      `json:"package"`   // package name
	Syntax    string      `json:"syntax"`    // proto2 or proto3
	Imports   []string    `json:"imports"`   // resolved paths of imported files
	Messages  []*Message  `json:"messages"`  // struct definitions
	Abstracts []*Abstract `json:"abstracts"` // abstract (polymorphic) definitions
	Enums     []*Enum     `json:"enums"`     // enum definitions
}

// Message represents a struct definition: an ordered set of tagged members.
type Message struct {
	Name            string      `json:"name"`             // "User"
	Fields          []*Field    `json:"fields"`           // members
	NestedTypes     []*Message  `json:"nested_types"`     // nested messages
	NestedAbstracts []*Abstract `json:"nested_abstracts"` // nested abstract types
	NestedEnums     []*Enum     `json:"nested_enums"`     // nested enums
}

// Field represents a struct member
type Field struct {
	Name  string    `json:"name"`   // "user_name"
	TagID int32     `json:"tag_id"` // 1
	Type  FieldType `json:"type"`   // member type information
}

// FieldByTag returns the field with the given tag id, or nil.
func (m *Message) FieldByTag(tagID int32) *Field {
	for _, f := range m.Fields {
		if f.TagID == tagID {
			return f
		}
	}
	return nil
}

// FieldByName returns the field with the given name, or nil.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Abstract is a polymorphic struct type. On the wire a value carries the code
// of its concrete variant; code 0 is the null value.
type Abstract struct {
	Name     string     `json:"name"`     // "Shape"
	Variants []*Variant `json:"variants"` // concrete types
}

// Variant binds a type code to a concrete message type.
type Variant struct {
	Code        int32  `json:"code"`         // > 0
	Name        string `json:"name"`         // "circle"
	MessageType string `json:"message_type"` // "geo.Circle"
}

// VariantByCode returns the variant with the given type code, or nil.
func (a *Abstract) VariantByCode(code int32) *Variant {
	for _, v := range a.Variants {
		if v.Code == code {
			return v
		}
	}
	return nil
}

// VariantByMessage returns the variant whose message type is name (fully
// qualified or short), or nil.
func (a *Abstract) VariantByMessage(name string) *Variant {
	for _, v := range a.Variants {
		if v.MessageType == name || v.Name == name || strings.HasSuffix(v.MessageType, "."+name) {
			return v
		}
	}
	return nil
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindScalar   TypeKind = "scalar"
	KindEnum     TypeKind = "enum"
	KindMessage  TypeKind = "message"
	KindAbstract TypeKind = "abstract"
	KindList     TypeKind = "list"
	KindMap      TypeKind = "map"
)

// FieldType represents field type information
type FieldType struct {
	Kind        TypeKind          `json:"kind"`                   // scalar, enum, message, abstract, list, map
	Scalar      wire.WireDataType `json:"scalar,omitempty"`       // for scalars and enums: the non-nullable tag
	Nullable    bool              `json:"nullable,omitempty"`     // nullable scalar or NullableStruct
	MessageType string            `json:"message_type,omitempty"` // for message and abstract types: "pkg.User"
	EnumType    string            `json:"enum_type,omitempty"`    // for enum types
	Element     *FieldType        `json:"element,omitempty"`      // for list element type
	Key         *FieldType        `json:"key,omitempty"`          // for map key type
	Value       *FieldType        `json:"value,omitempty"`        // for map value type
}

// WireType returns the tag a value of this type is written with.
func (ft FieldType) WireType() wire.WireDataType {
	switch ft.Kind {
	case KindScalar, KindEnum:
		if ft.Nullable {
			if nt, ok := wire.NullableOf(ft.Scalar); ok {
				return nt
			}
		}
		return ft.Scalar
	case KindMessage:
		if ft.Nullable {
			return wire.NullableStruct
		}
		return wire.Struct
	case KindAbstract:
		return wire.AbstractStruct
	case KindList:
		return wire.ValueCollection
	case KindMap:
		return wire.KeyValueCollection
	default:
		return wire.Invalid
	}
}

// Enum represents an enum definition. Enum values travel as VarInt.
type Enum struct {
	Name   string       `json:"name"`   // "Status"
	Values []*EnumValue `json:"values"` // enum values
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}

// ValueByName returns the numeric value of name.
func (e *Enum) ValueByName(name string) (int32, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Number, true
		}
	}
	return 0, false
}

// NameOf returns the name of the value numbered n.
func (e *Enum) NameOf(n int32) (string, bool) {
	for _, v := range e.Values {
		if v.Number == n {
			return v.Name, true
		}
	}
	return "", false
}
