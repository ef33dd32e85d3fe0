package progress

// A Func is a callback reporting the state of a transfer.
type Func func(s Status)

// Status describes how far a transfer has come.
type Status struct {
	// Percent is the overall completion in the range [0, 100].
	Percent float64
	// Bytes is the number of bytes transferred so far, including bytes
	// confirmed by earlier, resumed attempts.
	Bytes uint64
	// Total is the expected total size in bytes.
	Total uint64
	// ETA estimates the remaining transfer duration.
	ETA ETA
}
