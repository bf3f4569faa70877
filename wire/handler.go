package wire

// ErrorAction is the decision an error hook returns.
type ErrorAction int

const (
	// Propagate makes Parse return the error.
	Propagate ErrorAction = iota
	// Suppress makes Parse return nil, keeping the events already delivered.
	Suppress
)

// Handler receives the structural events of a parse in document order: every
// begin fires before the events of its children and its matching end fires
// after them. A non-nil error returned from any hook aborts the parse; it is
// reported as ErrHook through OnError like any other failure.
//
// Consumers normally embed NopHandler and override only the hooks they need.
type Handler interface {
	// Scalars, including the Null tag (v == nil) and the null branch of a
	// nullable scalar (t is the unwrapped scalar type, v == nil).
	OnBeginPrimitive(t WireDataType, v interface{}) error
	OnEndPrimitive(t WireDataType, v interface{}) error

	// Nullable scalar wrappers; t is the nullable tag.
	OnBeginNullablePrimitive(t WireDataType, notNull bool) error
	OnEndNullablePrimitive(t WireDataType, notNull bool) error

	OnBeginStruct() error
	OnEndStruct() error

	OnBeginNullableStruct(notNull bool) error
	OnEndNullableStruct(notNull bool) error

	// typeCode 0 is the null abstract value and has no members.
	OnBeginAbstractStruct(typeCode int32) error
	OnEndAbstractStruct(typeCode int32) error

	OnBeginMember(t WireDataType, tagID int32) error
	OnEndMember(t WireDataType, tagID int32) error

	// count == -1 denotes an absent collection; elemType is then Invalid.
	OnBeginValueCollection(count int32, elemType WireDataType) error
	OnEndValueCollection(count int32, elemType WireDataType) error

	// count == -1 denotes an absent collection; both types are then Invalid.
	OnBeginKeyValueCollection(count int32, keyType, valueType WireDataType) error
	OnEndKeyValueCollection(count int32, keyType, valueType WireDataType) error

	// Elements wrap each item of a ValueCollection and each key/value pair
	// of a KeyValueCollection.
	OnBeginElement(index int32) error
	OnEndElement(index int32) error

	OnBeginKey(index int32) error
	OnEndKey(index int32) error

	OnBeginValue(index int32) error
	OnEndValue(index int32) error

	// OnEndOfStream fires once after the top-level value is fully consumed.
	OnEndOfStream() error

	// OnError is offered every failure of the parse, err being a *ParseError.
	OnError(err error) ErrorAction
}

// NopHandler implements every Handler hook as a no-op that propagates errors.
type NopHandler struct{}

func (NopHandler) OnBeginPrimitive(WireDataType, interface{}) error { return nil }
func (NopHandler) OnEndPrimitive(WireDataType, interface{}) error { return nil }
func (NopHandler) OnBeginNullablePrimitive(WireDataType, bool) error { return nil }
func (NopHandler) OnEndNullablePrimitive(WireDataType, bool) error { return nil }
func (NopHandler) OnBeginStruct() error { return nil }
func (NopHandler) OnEndStruct() error { return nil }
func (NopHandler) OnBeginNullableStruct(bool) error { return nil }
func (NopHandler) OnEndNullableStruct(bool) error { return nil }
func (NopHandler) OnBeginAbstractStruct(int32) error { return nil }
func (NopHandler) OnEndAbstractStruct(int32) error { return nil }
func (NopHandler) OnBeginMember(WireDataType, int32) error { return nil }
func (NopHandler) OnEndMember(WireDataType, int32) error { return nil }
func (NopHandler) OnBeginValueCollection(int32, WireDataType) error { return nil }
func (NopHandler) OnEndValueCollection(int32, WireDataType) error { return nil }
func (NopHandler) OnBeginKeyValueCollection(int32, WireDataType, WireDataType) error { return nil }
func (NopHandler) OnEndKeyValueCollection(int32, WireDataType, WireDataType) error { return nil }
func (NopHandler) OnBeginElement(int32) error { return nil }
func (NopHandler) OnEndElement(int32) error { return nil }
func (NopHandler) OnBeginKey(int32) error { return nil }
func (NopHandler) OnEndKey(int32) error { return nil }
func (NopHandler) OnBeginValue(int32) error { return nil }
func (NopHandler) OnEndValue(int32) error { return nil }
func (NopHandler) OnEndOfStream() error { return nil }
func (NopHandler) OnError(error) ErrorAction { return Propagate }

var _ Handler = NopHandler{}
