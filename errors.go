package imtool

import "errors"

// Errors returned by the codecs and transforms. Match them with errors.Is;
// most are wrapped with context about the file or value involved.
var (
	// ErrUnsupportedFormat means the input does not start with the P6 magic token.
	ErrUnsupportedFormat = errors.New("imtool: unsupported format")
	// ErrInvalidMaxColor means a max color value is outside [1, 65535].
	ErrInvalidMaxColor = errors.New("imtool: invalid max color value")
	// ErrTruncatedData means the input ended before the header or payload was complete.
	ErrTruncatedData = errors.New("imtool: truncated data")
	// ErrTooManyColors means a color table would exceed 2^32 entries.
	ErrTooManyColors = errors.New("imtool: too many colors")
	// ErrIO means a file could not be opened, read, written or closed.
	ErrIO = errors.New("imtool: i/o failure")

	// ErrInvalidHeader means a header field is not a positive decimal integer.
	ErrInvalidHeader = errors.New("imtool: invalid header")
	// ErrInvalidDimensions means a width or height is below 1.
	ErrInvalidDimensions = errors.New("imtool: invalid dimensions")
	// ErrOutOfBounds means a pixel coordinate lies outside the buffer.
	ErrOutOfBounds = errors.New("imtool: coordinate out of bounds")
	// ErrSampleRange means a sample exceeds the buffer's max color value.
	ErrSampleRange = errors.New("imtool: sample out of range")
	// ErrInvalidArgument means an operation request has the wrong arguments.
	ErrInvalidArgument = errors.New("imtool: invalid argument")
)
