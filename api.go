package tagwire

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/anirudhraja/tagwire/registry"
	"github.com/anirudhraja/tagwire/schema"
	"github.com/anirudhraja/tagwire/wire"
)

// ===== SCHEMA-AWARE API =====

// Tagwire provides schema-aware tagwire operations without generated code
type Tagwire struct {
	registry *registry.Registry
	cfg      wire.Config
}

// Option configures a Tagwire instance.
type Option func(*Tagwire)

// WithConfig sets the decode limits used by Parse and Unmarshal and the
// depth limit used by Marshal.
func WithConfig(cfg wire.Config) Option {
	return func(p *Tagwire) { p.cfg = cfg }
}

// WithProtoDirectories sets the directories imports are resolved against.
func WithProtoDirectories(dirs ...string) Option {
	return func(p *Tagwire) { p.registry.ProtoDirectories = dirs }
}

// New creates a new Tagwire instance
func New(opts ...Option) *Tagwire {
	p := &Tagwire{
		registry: registry.NewRegistry(),
		cfg:      wire.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadRepo loads already-built schema definitions
func (p *Tagwire) LoadRepo(repo *schema.Repo) error {
	return p.registry.LoadRepo(repo)
}

// LoadSchemaFromFile loads a .proto file, or every .proto file under a directory
func (p *Tagwire) LoadSchemaFromFile(path string) error {
	return p.registry.LoadSchema(path)
}

// LoadSchemaFromReader loads a single .proto document
func (p *Tagwire) LoadSchemaFromReader(name string, r io.Reader) error {
	return p.registry.LoadSchemaFromReader(name, r)
}

// Parse decodes a top-level struct and binds its members to the field names
// of messageType. Members the schema does not know are skipped.
func (p *Tagwire) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	fullName, ok := p.registry.FullName(messageType)
	if !ok {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	if _, err := p.registry.GetMessage(fullName); err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}

	b := newBinder(p.registry, fullName)
	if err := wire.NewParser(data, p.cfg).Parse(b); err != nil {
		return nil, err
	}
	return b.result()
}

// Marshal encodes a map to tagwire bytes using schema information
func (p *Tagwire) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}

	members, err := newMarshaler(p.registry).members(data, msg)
	if err != nil {
		return nil, err
	}
	return wire.EncodeWithConfig(wire.StructOf(members...), p.cfg)
}

// Unmarshal decodes tagwire bytes into a Go struct using reflection. Struct
// fields are matched by `tagwire` tag, then by name ignoring case and underscores.
func (p *Tagwire) Unmarshal(data []byte, messageType string, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	result, err := p.Parse(data, messageType)
	if err != nil {
		return err
	}

	return p.mapToStruct(result, rv.Elem())
}

// mapToStruct maps parsed result to struct fields
func (p *Tagwire) mapToStruct(data map[string]interface{}, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		value, ok := lookupField(data, field)
		if !ok {
			continue
		}
		if err := p.setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

func lookupField(data map[string]interface{}, field reflect.StructField) (interface{}, bool) {
	if name, ok := field.Tag.Lookup("tagwire"); ok {
		if name == "-" {
			return nil, false
		}
		value, ok := data[name]
		return value, ok
	}
	if value, ok := data[field.Name]; ok {
		return value, true
	}
	want := normalizeName(field.Name)
	for name, value := range data {
		if normalizeName(name) == want {
			return value, true
		}
	}
	return nil, false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// setFieldValue sets a struct field with type conversion
func (p *Tagwire) setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	targetType := fieldValue.Type()

	switch src := value.(type) {
	case map[string]interface{}:
		switch {
		case targetType.Kind() == reflect.Struct:
			return p.mapToStruct(src, fieldValue)
		case targetType.Kind() == reflect.Ptr && targetType.Elem().Kind() == reflect.Struct:
			ptr := reflect.New(targetType.Elem())
			if err := p.mapToStruct(src, ptr.Elem()); err != nil {
				return err
			}
			fieldValue.Set(ptr)
			return nil
		}
	case []interface{}:
		if targetType.Kind() == reflect.Slice && !sourceValue.Type().AssignableTo(targetType) {
			out := reflect.MakeSlice(targetType, len(src), len(src))
			for i, elem := range src {
				if err := p.setFieldValue(out.Index(i), elem); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			fieldValue.Set(out)
			return nil
		}
	case map[interface{}]interface{}:
		if targetType.Kind() == reflect.Map && !sourceValue.Type().AssignableTo(targetType) {
			out := reflect.MakeMapWithSize(targetType, len(src))
			for k, v := range src {
				key := reflect.New(targetType.Key()).Elem()
				if err := p.setFieldValue(key, k); err != nil {
					return fmt.Errorf("key %v: %w", k, err)
				}
				val := reflect.New(targetType.Elem()).Elem()
				if err := p.setFieldValue(val, v); err != nil {
					return fmt.Errorf("value for key %v: %w", k, err)
				}
				out.SetMapIndex(key, val)
			}
			fieldValue.Set(out)
			return nil
		}
	case int64:
		if targetType.Kind() == reflect.Bool {
			fieldValue.SetBool(src != 0)
			return nil
		}
		if targetType.Kind() == reflect.String {
			return fmt.Errorf("cannot convert %T to %s", value, targetType)
		}
	case wire.Fixed32:
		if !fixedAssignable(sourceValue.Type(), targetType) {
			return p.setFieldValue(fieldValue, src.Float())
		}
	case wire.Fixed64:
		if !fixedAssignable(sourceValue.Type(), targetType) {
			return p.setFieldValue(fieldValue, src.Float())
		}
	}

	if targetType.Kind() == reflect.Ptr && sourceValue.Type().AssignableTo(targetType.Elem()) {
		ptr := reflect.New(targetType.Elem())
		ptr.Elem().Set(sourceValue)
		fieldValue.Set(ptr)
		return nil
	}

	if sourceValue.Type().AssignableTo(targetType) {
		fieldValue.Set(sourceValue)
		return nil
	}

	if isNumber(sourceValue.Kind()) && isNumber(targetType.Kind()) {
		if err := checkNumberFits(sourceValue, targetType); err != nil {
			return err
		}
	}

	if sourceValue.Type().ConvertibleTo(targetType) {
		fieldValue.Set(sourceValue.Convert(targetType))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, targetType)
}

// fixedAssignable reports whether a fixed-point value can be stored as is,
// without going through its float value.
func fixedAssignable(src, target reflect.Type) bool {
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	return src.AssignableTo(target)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// checkNumberFits rejects numeric conversions that would change the value:
// overflow, sign loss, or a fractional float stored in an integer.
func checkNumberFits(src reflect.Value, targetType reflect.Type) error {
	target := reflect.New(targetType).Elem()
	overflow := fmt.Errorf("value %v overflows %s", src.Interface(), targetType)

	switch src.Kind() {
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		switch target.Kind() {
		case reflect.Float32, reflect.Float64:
			if target.OverflowFloat(f) {
				return overflow
			}
			return nil
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot store %v in %s without truncation", f, targetType)
		}
		if f < math.MinInt64 || f >= math.MaxUint64 {
			return overflow
		}
		if f < 0 {
			return checkNumberFits(reflect.ValueOf(int64(f)), targetType)
		}
		return checkNumberFits(reflect.ValueOf(uint64(f)), targetType)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := src.Uint()
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if u > math.MaxInt64 || target.OverflowInt(int64(u)) {
				return overflow
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if target.OverflowUint(u) {
				return overflow
			}
		}
		return nil

	default:
		n := src.Int()
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if target.OverflowInt(n) {
				return overflow
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if n < 0 || target.OverflowUint(uint64(n)) {
				return overflow
			}
		}
		return nil
	}
}

// ===== REGISTRY ACCESS =====

func (p *Tagwire) GetRegistry() *registry.Registry { return p.registry }
func (p *Tagwire) ListMessages() []string { return p.registry.ListMessages() }
func (p *Tagwire) ListAbstracts() []string { return p.registry.ListAbstracts() }
func (p *Tagwire) ListEnums() []string { return p.registry.ListEnums() }
