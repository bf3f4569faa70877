package wire

// Config bounds the resources a single decode may consume. The zero value is
// not useful; start from DefaultConfig.
type Config struct {
	// MaxBytesLength caps the declared length of String and Bytes payloads.
	// Lengths above it fail with ErrSizeLimit before any allocation happens.
	MaxBytesLength int

	// MaxDepth caps the nesting of structs and collections.
	MaxDepth int

	// MaxCollectionLength caps the declared element count of a collection.
	MaxCollectionLength int

	// MaxEmptyElements caps the total number of zero-width elements (Null
	// elements, keys and values) declared across all collections of one
	// parse. They occupy no input bytes, so the remaining-input check cannot
	// bound them.
	MaxEmptyElements int

	// AllowTrailingBytes lets Parse stop after the top-level value without
	// requiring the input to be fully consumed. Parser.Offset reports where
	// the value ended.
	AllowTrailingBytes bool
}

const (
	DefaultMaxBytesLength      = 64 << 20
	DefaultMaxDepth            = 128
	DefaultMaxCollectionLength = 1 << 24
	DefaultMaxEmptyElements    = 1 << 16
)

// DefaultConfig returns the limits used when no Config is supplied.
func DefaultConfig() Config {
	return Config{
		MaxBytesLength:      DefaultMaxBytesLength,
		MaxDepth:            DefaultMaxDepth,
		MaxCollectionLength: DefaultMaxCollectionLength,
		MaxEmptyElements:    DefaultMaxEmptyElements,
	}
}

// withDefaults fills unset limits so a partially populated Config stays safe.
func (c Config) withDefaults() Config {
	if c.MaxBytesLength <= 0 {
		c.MaxBytesLength = DefaultMaxBytesLength
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxCollectionLength <= 0 {
		c.MaxCollectionLength = DefaultMaxCollectionLength
	}
	if c.MaxEmptyElements <= 0 {
		c.MaxEmptyElements = DefaultMaxEmptyElements
	}
	return c
}
