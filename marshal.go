package tagwire

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/anirudhraja/tagwire/registry"
	"github.com/anirudhraja/tagwire/schema"
	"github.com/anirudhraja/tagwire/wire"
)

// marshaler converts Go values into a wire.Value tree following the schema.
type marshaler struct {
	reg *registry.Registry
}

func newMarshaler(reg *registry.Registry) *marshaler {
	return &marshaler{reg: reg}
}

// members converts the fields of a message, ordered by tag id. Keys the
// message does not define are ignored, as is the TypeKey of abstract values.
func (m *marshaler) members(data map[string]interface{}, msg *schema.Message) ([]wire.Member, error) {
	fields := make([]*schema.Field, 0, len(data))
	for name := range data {
		field := msg.FieldByName(name)
		if field == nil {
			continue // Skip unknown fields
		}
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].TagID < fields[j].TagID })

	members := make([]wire.Member, 0, len(fields))
	for _, field := range fields {
		v, ok, err := m.value(data[field.Name], &field.Type)
		if err != nil {
			return nil, wire.WrapPath(err, field.Name)
		}
		if !ok {
			continue
		}
		members = append(members, wire.M(field.TagID, v))
	}
	return members, nil
}

// value converts v to a value of type ft. A nil v for a type that has no null
// reports ok == false so the member is left out.
func (m *marshaler) value(v interface{}, ft *schema.FieldType) (wire.Value, bool, error) {
	if isNil(v) {
		switch {
		case ft.Kind == schema.KindAbstract, ft.Kind == schema.KindList, ft.Kind == schema.KindMap:
			return wire.NullOf(ft.WireType()), true, nil
		case ft.Nullable:
			return wire.NullOf(ft.WireType()), true, nil
		default:
			return wire.Value{}, false, nil
		}
	}

	switch ft.Kind {
	case schema.KindScalar, schema.KindEnum:
		scalar, err := m.scalar(v, ft)
		if err != nil {
			return wire.Value{}, false, err
		}
		val := wire.Value{Type: ft.Scalar, Scalar: scalar}
		if ft.Nullable {
			val = wire.Nullable(val)
		}
		return val, true, nil

	case schema.KindMessage:
		data, ok := v.(map[string]interface{})
		if !ok {
			return wire.Value{}, false, fmt.Errorf("expected map[string]interface{} for message %s, got %T", ft.MessageType, v)
		}
		msg, err := m.reg.GetMessage(ft.MessageType)
		if err != nil {
			return wire.Value{}, false, err
		}
		members, err := m.members(data, msg)
		if err != nil {
			return wire.Value{}, false, err
		}
		if ft.Nullable {
			return wire.NullableStructOf(members...), true, nil
		}
		return wire.StructOf(members...), true, nil

	case schema.KindAbstract:
		val, err := m.abstract(v, ft)
		return val, err == nil, err

	case schema.KindList:
		val, err := m.list(v, ft)
		return val, err == nil, err

	case schema.KindMap:
		val, err := m.mapValue(v, ft)
		return val, err == nil, err
	}
	return wire.Value{}, false, fmt.Errorf("unsupported field kind: %s", ft.Kind)
}

func (m *marshaler) abstract(v interface{}, ft *schema.FieldType) (wire.Value, error) {
	data, ok := v.(map[string]interface{})
	if !ok {
		return wire.Value{}, fmt.Errorf("expected map[string]interface{} for abstract %s, got %T", ft.MessageType, v)
	}
	typeName, ok := data[TypeKey].(string)
	if !ok {
		return wire.Value{}, fmt.Errorf("abstract %s value has no %s string", ft.MessageType, TypeKey)
	}
	abstract, err := m.reg.GetAbstract(ft.MessageType)
	if err != nil {
		return wire.Value{}, err
	}
	variant := abstract.VariantByMessage(typeName)
	if variant == nil {
		return wire.Value{}, fmt.Errorf("%s is not a variant of %s", typeName, ft.MessageType)
	}
	msg, err := m.reg.GetMessage(variant.MessageType)
	if err != nil {
		return wire.Value{}, err
	}
	members, err := m.members(data, msg)
	if err != nil {
		return wire.Value{}, err
	}
	return wire.AbstractOf(variant.Code, members...), nil
}

// list accepts any slice; typed slices such as []string need no conversion.
func (m *marshaler) list(v interface{}, ft *schema.FieldType) (wire.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return wire.Value{}, fmt.Errorf("expected slice for list, got %T", v)
	}
	elems := make([]wire.Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, ok, err := m.value(rv.Index(i).Interface(), ft.Element)
		if err == nil && !ok {
			err = fmt.Errorf("nil element")
		}
		if err != nil {
			return wire.Value{}, wire.WrapPath(err, fmt.Sprintf("[%d]", i))
		}
		elems = append(elems, elem)
	}
	return wire.CollectionOf(ft.Element.WireType(), elems...), nil
}

// mapValue accepts any map. Entries are ordered by their encoded key so the
// output does not depend on Go map iteration order.
func (m *marshaler) mapValue(v interface{}, ft *schema.FieldType) (wire.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return wire.Value{}, fmt.Errorf("expected map for map field, got %T", v)
	}

	type sortableEntry struct {
		sortKey []byte
		entry   wire.Entry
	}
	entries := make([]sortableEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		key, ok, err := m.value(k, ft.Key)
		if err == nil && !ok {
			err = fmt.Errorf("nil key")
		}
		if err != nil {
			return wire.Value{}, wire.WrapPath(err, "key")
		}
		val, ok, err := m.value(iter.Value().Interface(), ft.Value)
		if err == nil && !ok {
			err = fmt.Errorf("nil value")
		}
		if err != nil {
			return wire.Value{}, wire.WrapPath(err, fmt.Sprint(k))
		}
		sortKey, err := wire.Encode(key)
		if err != nil {
			return wire.Value{}, wire.WrapPath(err, "key")
		}
		entries = append(entries, sortableEntry{sortKey: sortKey, entry: wire.Entry{Key: key, Value: val}})
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].sortKey, entries[j].sortKey) < 0 })

	out := make([]wire.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.entry
	}
	return wire.KeyValueCollectionOf(ft.Key.WireType(), ft.Value.WireType(), out...), nil
}

// scalar converts v to the Go payload of ft's non-nullable tag.
func (m *marshaler) scalar(v interface{}, ft *schema.FieldType) (interface{}, error) {
	if ft.Kind == schema.KindEnum {
		if name, ok := v.(string); ok {
			enum, err := m.reg.GetEnum(ft.EnumType)
			if err != nil {
				return nil, err
			}
			n, ok := enum.ValueByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown %s value: %s", ft.EnumType, name)
			}
			return int64(n), nil
		}
	}

	switch ft.Scalar {
	case wire.VarInt:
		return toInt64(v)
	case wire.VarInt128:
		if x, ok := v.(wire.Int128); ok {
			return x, nil
		}
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return wire.Int128FromInt64(n), nil
	case wire.F32:
		if x, ok := v.(wire.Fixed32); ok {
			return x, nil
		}
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return wire.Fixed32FromFloat(f), nil
	case wire.F64:
		if x, ok := v.(wire.Fixed64); ok {
			return x, nil
		}
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return wire.Fixed64FromFloat(f), nil
	case wire.F32Vec2, wire.F32Vec3, wire.F64Vec2, wire.F64Vec3:
		if !isVector(ft.Scalar, v) {
			return nil, fmt.Errorf("expected %s, got %T", ft.Scalar, v)
		}
		return v, nil
	case wire.Float32:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case wire.Float64:
		return toFloat64(v)
	case wire.String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)
	case wire.Bytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
		return nil, fmt.Errorf("expected []byte, got %T", v)
	case wire.MetaGuid:
		switch g := v.(type) {
		case uuid.UUID:
			return g, nil
		case string:
			return uuid.Parse(g)
		}
		return nil, fmt.Errorf("expected uuid.UUID, got %T", v)
	}
	return nil, fmt.Errorf("unsupported scalar type: %s", ft.Scalar)
}

// ===== UTILITY FUNCTIONS =====

func isVector(t wire.WireDataType, v interface{}) bool {
	switch v.(type) {
	case wire.Fixed32Vec2:
		return t == wire.F32Vec2
	case wire.Fixed32Vec3:
		return t == wire.F32Vec3
	case wire.Fixed64Vec2:
		return t == wire.F64Vec2
	case wire.Fixed64Vec3:
		return t == wire.F64Vec3
	}
	return false
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("value %d overflows int64", n)
	}
	return int64(n), nil
}

func toFloat64(v interface{}) (float64, error) {
	switch f := v.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	case int32:
		return float64(f), nil
	case int64:
		return float64(f), nil
	}
	return 0, fmt.Errorf("expected float, got %T", v)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

