package msbt

type readConfig struct {
	limits Limits
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

type writeConfig struct {
	limits    Limits
	byteOrder *ByteOrder
	encoding  *Encoding
}

type WriteOption func(*writeConfig)

func WithWriteLimits(l Limits) WriteOption {
	return func(c *writeConfig) { c.limits = l }
}

// WithByteOrder overrides Document.Header.ByteOrder. Big endian targets the
// Wii U, little endian the Switch.
func WithByteOrder(o ByteOrder) WriteOption {
	return func(c *writeConfig) { c.byteOrder = &o }
}

// WithEncoding overrides Document.Header.Encoding.
func WithEncoding(e Encoding) WriteOption {
	return func(c *writeConfig) { c.encoding = &e }
}
