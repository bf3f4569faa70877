package registry

import (
	"fmt"
	"math"
	"strconv"

	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/tagwire/schema"
	"github.com/anirudhraja/tagwire/wire"
)

const enumWireType = wire.VarInt

// scalarTypes maps .proto scalar names, plus the tagwire builtin names, to
// the tag their values are written with.
var scalarTypes = map[string]wire.WireDataType{
	"int32":    wire.VarInt,
	"int64":    wire.VarInt,
	"uint32":   wire.VarInt,
	"uint64":   wire.VarInt,
	"sint32":   wire.VarInt,
	"sint64":   wire.VarInt,
	"fixed32":  wire.VarInt,
	"fixed64":  wire.VarInt,
	"sfixed32": wire.VarInt,
	"sfixed64": wire.VarInt,
	"bool":     wire.VarInt,
	"float":    wire.Float32,
	"double":   wire.Float64,
	"string":   wire.String,
	"bytes":    wire.Bytes,

	"VarInt128": wire.VarInt128,
	"F32":       wire.F32,
	"F32Vec2":   wire.F32Vec2,
	"F32Vec3":   wire.F32Vec3,
	"F64":       wire.F64,
	"F64Vec2":   wire.F64Vec2,
	"F64Vec3":   wire.F64Vec3,
	"MetaGuid":  wire.MetaGuid,
}

// wrapperTypes are the well-known wrapper messages. They bind to nullable
// scalars rather than to structs.
var wrapperTypes = map[string]wire.WireDataType{
	"google.protobuf.DoubleValue": wire.Float64,
	"google.protobuf.FloatValue":  wire.Float32,
	"google.protobuf.Int64Value":  wire.VarInt,
	"google.protobuf.UInt64Value": wire.VarInt,
	"google.protobuf.Int32Value":  wire.VarInt,
	"google.protobuf.UInt32Value": wire.VarInt,
	"google.protobuf.BoolValue":   wire.VarInt,
	"google.protobuf.StringValue": wire.String,
	"google.protobuf.BytesValue":  wire.Bytes,
}

// convertProto converts a parsed .proto body into schema definitions. Type
// references are left as written; buildSymbolTable resolves them.
func convertProto(name string, proto *protoparserparser.Proto) (*schema.File, error) {
	if proto == nil {
		return nil, fmt.Errorf("no parsed body for %s", name)
	}
	file := &schema.File{
		Name:   name,
		Syntax: "proto3", // Default
	}
	if proto.Syntax != nil && proto.Syntax.ProtobufVersion != "" {
		file.Syntax = proto.Syntax.ProtobufVersion
	}

	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			file.Package = b.Name
		case *protoparserparser.Message:
			msg, abstract, err := convertMessage(b)
			if err != nil {
				return nil, err
			}
			if abstract != nil {
				file.Abstracts = append(file.Abstracts, abstract)
			} else {
				file.Messages = append(file.Messages, msg)
			}
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			file.Enums = append(file.Enums, enum)
		}
	}
	return file, nil
}

// convertMessage converts a message definition. A message whose body is a
// single oneof of message-typed fields becomes an abstract type whose
// variant codes are the oneof field numbers.
func convertMessage(m *protoparserparser.Message) (*schema.Message, *schema.Abstract, error) {
	if abstract, ok, err := asAbstract(m); ok || err != nil {
		return nil, abstract, err
	}

	msg := &schema.Message{Name: m.MessageName}
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			field, err := convertField(m.MessageName, b.FieldName, b.FieldNumber, b.Type, b.IsRepeated, b.IsOptional)
			if err != nil {
				return nil, nil, err
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.MapField:
			tagID, err := parseTagID(m.MessageName, b.MapName, b.FieldNumber)
			if err != nil {
				return nil, nil, err
			}
			key := convertFieldType(b.KeyType, false)
			value := convertFieldType(b.Type, false)
			msg.Fields = append(msg.Fields, &schema.Field{
				Name:  b.MapName,
				TagID: tagID,
				Type:  schema.FieldType{Kind: schema.KindMap, Key: &key, Value: &value},
			})
		case *protoparserparser.Oneof:
			// members of a oneof inside a regular message may each be absent
			for _, of := range b.OneofFields {
				field, err := convertField(m.MessageName, of.FieldName, of.FieldNumber, of.Type, false, true)
				if err != nil {
					return nil, nil, err
				}
				msg.Fields = append(msg.Fields, field)
			}
		case *protoparserparser.Message:
			nested, abstract, err := convertMessage(b)
			if err != nil {
				return nil, nil, err
			}
			if abstract != nil {
				msg.NestedAbstracts = append(msg.NestedAbstracts, abstract)
			} else {
				msg.NestedTypes = append(msg.NestedTypes, nested)
			}
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil, nil
}

func asAbstract(m *protoparserparser.Message) (*schema.Abstract, bool, error) {
	var oneof *protoparserparser.Oneof
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Oneof:
			if oneof != nil {
				return nil, false, nil
			}
			oneof = b
		case *protoparserparser.Field, *protoparserparser.MapField:
			return nil, false, nil
		case *protoparserparser.Message, *protoparserparser.Enum:
			if oneof != nil {
				return nil, false, nil
			}
		}
	}
	if oneof == nil || len(oneof.OneofFields) == 0 {
		return nil, false, nil
	}
	for _, of := range oneof.OneofFields {
		if _, scalar := scalarTypes[of.Type]; scalar {
			return nil, false, nil
		}
		if _, wrapper := wrapperTypes[of.Type]; wrapper {
			return nil, false, nil
		}
	}

	for _, body := range m.MessageBody {
		switch body.(type) {
		case *protoparserparser.Message, *protoparserparser.Enum:
			return nil, true, fmt.Errorf("abstract type %s cannot declare nested types", m.MessageName)
		}
	}

	abstract := &schema.Abstract{Name: m.MessageName}
	for _, of := range oneof.OneofFields {
		code, err := parseTagID(m.MessageName, of.FieldName, of.FieldNumber)
		if err != nil {
			return nil, true, err
		}
		abstract.Variants = append(abstract.Variants, &schema.Variant{
			Code:        code,
			Name:        of.FieldName,
			MessageType: of.Type,
		})
	}
	return abstract, true, nil
}

func convertField(msgName, name, number, typeName string, repeated, optional bool) (*schema.Field, error) {
	tagID, err := parseTagID(msgName, name, number)
	if err != nil {
		return nil, err
	}
	ft := convertFieldType(typeName, optional && !repeated)
	if repeated {
		elem := convertFieldType(typeName, false)
		ft = schema.FieldType{Kind: schema.KindList, Element: &elem}
	}
	return &schema.Field{Name: name, TagID: tagID, Type: ft}, nil
}

// convertFieldType maps a .proto type name. Names that are neither scalars
// nor wrappers are recorded as message references to be resolved later.
func convertFieldType(typeName string, optional bool) schema.FieldType {
	if t, ok := scalarTypes[typeName]; ok {
		return schema.FieldType{Kind: schema.KindScalar, Scalar: t, Nullable: optional}
	}
	if t, ok := wrapperTypes[typeName]; ok {
		return schema.FieldType{Kind: schema.KindScalar, Scalar: t, Nullable: true}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: typeName, Nullable: optional}
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		field, ok := body.(*protoparserparser.EnumField)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(field.Number, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("enum %s: invalid value %s = %q: %w", e.EnumName, field.Ident, field.Number, err)
		}
		enum.Values = append(enum.Values, &schema.EnumValue{Name: field.Ident, Number: int32(n)})
	}
	return enum, nil
}

func parseTagID(msgName, fieldName, number string) (int32, error) {
	n, err := strconv.ParseInt(number, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: invalid field number %q: %w", msgName, fieldName, number, err)
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%s.%s: field number %d out of range", msgName, fieldName, n)
	}
	return int32(n), nil
}
