package board

// PinLevel is the logic level of a GPIO line.
type PinLevel int

const (
	Low PinLevel = iota
	High
)

func (l PinLevel) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// PinDirection selects whether a line is driven or sampled.
type PinDirection int

const (
	DirInput PinDirection = iota
	DirOutput
)

// Pin is a single GPIO line.
type Pin interface {
	// Handle returns the handle the pin was opened with.
	Handle() PinHandle

	// SetDirection switches the line between input and output mode.
	SetDirection(dir PinDirection) error

	// Write drives the line to the given level. Only valid in output mode.
	Write(level PinLevel) error

	// Read samples the current level of the line.
	Read() (PinLevel, error)

	// Close releases the line.
	Close() error
}

// PinDriver opens GPIO lines for pin handles. Implementations exist for
// the memory-mapped GPIO block of the target SoC and as an in-memory
// fake for tests.
type PinDriver interface {
	OpenPin(handle PinHandle) (Pin, error)
	Close() error
}
