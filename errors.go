package msbt

import "errors"

var (
	ErrBadMagic                = errors.New("msbt: invalid magic")
	ErrBadByteOrder            = errors.New("msbt: invalid byte order mark")
	ErrUnsupportedEncoding     = errors.New("msbt: unsupported text encoding")
	ErrUnexpectedEOF           = errors.New("msbt: unexpected end of data")
	ErrMissingSection          = errors.New("msbt: missing required section")
	ErrMalformedLabelTable     = errors.New("msbt: malformed label table")
	ErrMalformedAttributeTable = errors.New("msbt: malformed attribute table")
	ErrMalformedStyleTable     = errors.New("msbt: malformed style table")
	ErrDuplicateLabel          = errors.New("msbt: duplicate label")
	ErrEmptyLabel              = errors.New("msbt: empty label")
	ErrLabelTooLong            = errors.New("msbt: label too long")
	ErrInvalidControlTag       = errors.New("msbt: invalid control tag")
	ErrInvalidInputPath        = errors.New("msbt: not a valid file or folder")
	ErrIO                      = errors.New("msbt: i/o failure")
	ErrTextDecode              = errors.New("msbt: cannot parse msyt text")
	ErrLimitExceeded           = errors.New("msbt: limit exceeded")
	ErrValidation              = errors.New("msbt: validation failed")
)
