package msbt

type Limits struct {
	MaxFileSize   uint64 // bytes read from a single input
	MaxSectionLen uint64 // payload length as stored in the section header
	MaxEntries    int
}

func defaultLimits() Limits {
	return Limits{
		MaxFileSize:   256 << 20, // 256 MiB
		MaxSectionLen: 128 << 20,
		MaxEntries:    1 << 20,
	}
}

// DefaultLimits returns the limits applied when none are configured.
func DefaultLimits() Limits { return defaultLimits() }

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxFileSize == 0 {
		l.MaxFileSize = d.MaxFileSize
	}
	if l.MaxSectionLen == 0 {
		l.MaxSectionLen = d.MaxSectionLen
	}
	if l.MaxEntries == 0 {
		l.MaxEntries = d.MaxEntries
	}
	return l
}
