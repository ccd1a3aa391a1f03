// Package board maps user-supplied pin names onto the GPIO handles of the
// target platform and provides access to the individual lines.
//
// Pin names arrive in four notations: a physical position on the 40-pin
// header, a board constant ("D23"), a GPIO name ("GPIO23") or a bare BCM
// number ("23"). All of them resolve to a PinHandle, which is the only
// currency the rest of the system deals in.
package board

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Sentinel errors of the pin resolution.
var (
	ErrInvalidPinFormat = errors.New("invalid pin format")
	ErrUnsupportedPin   = errors.New("unsupported pin")
)

// PinHandle names a single GPIO line in the platform's D<n> notation,
// where n is the BCM number of the line.
type PinHandle string

// BCM returns the BCM GPIO number behind the handle.
func (h PinHandle) BCM() (int, error) {
	rest, ok := digitSuffix(string(h), "D")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a D<n> handle", ErrInvalidPinFormat, string(h))
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a D<n> handle", ErrInvalidPinFormat, string(h))
	}
	return n, nil
}

// physicalToBCM maps positions on the 40-pin header to BCM GPIO numbers.
// Power and ground positions are intentionally absent; asking for one of
// them is rejected as unsupported rather than silently remapped.
var physicalToBCM = map[string]int{
	"3":  2,
	"5":  3,
	"7":  4,
	"8":  14,
	"10": 15,
	"11": 17,
	"12": 18,
	"13": 27,
	"15": 22,
	"16": 23,
	"18": 24,
	"19": 10,
	"21": 9,
	"22": 25,
	"23": 11,
	"24": 8,
	"26": 7,
	"29": 5,
	"31": 6,
	"32": 12,
	"33": 13,
	"35": 19,
	"36": 16,
	"37": 26,
	"38": 20,
	"40": 21,
}

// boardHandles is the closed set of GPIO handles the platform exposes,
// one per BCM line of the SoC header bank.
var boardHandles = []PinHandle{
	"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7",
	"D8", "D9", "D10", "D11", "D12", "D13", "D14", "D15",
	"D16", "D17", "D18", "D19", "D20", "D21", "D22", "D23",
	"D24", "D25", "D26", "D27",
}

var handleSet = func() map[PinHandle]struct{} {
	set := make(map[PinHandle]struct{}, len(boardHandles))
	for _, h := range boardHandles {
		set[h] = struct{}{}
	}
	return set
}()

var logger = log.New(os.Stdout, "[PinMap] ", log.LstdFlags)

// Resolve maps a pin name in any of the four accepted notations onto the
// platform handle set. Physical header positions take priority over bare
// BCM numbers, so "16" always means header pin 16 and never GPIO16.
func Resolve(pin string) (PinHandle, error) {
	return resolveAgainst(handleSet, pin)
}

func resolveAgainst(handles map[PinHandle]struct{}, pin string) (PinHandle, error) {
	var candidate PinHandle

	if bcm, ok := physicalToBCM[pin]; ok {
		candidate = PinHandle("D" + strconv.Itoa(bcm))
		logger.Printf("Resolved physical pin %s to BCM %d (%s)", pin, bcm, candidate)
	} else if _, ok := digitSuffix(pin, "D"); ok {
		candidate = PinHandle(pin)
		logger.Printf("Using board constant %s directly", candidate)
	} else if rest, ok := digitSuffix(pin, "GPIO"); ok {
		candidate = PinHandle("D" + rest)
		logger.Printf("Resolved %s to %s", pin, candidate)
	} else if isDigits(pin) {
		candidate = PinHandle("D" + pin)
		logger.Printf("Assuming BCM pin %s (%s)", pin, candidate)
	} else {
		return "", fmt.Errorf("%w: %q (expected a physical pin number, D<n>, GPIO<n> or a bare BCM number)", ErrInvalidPinFormat, pin)
	}

	if _, ok := handles[candidate]; !ok {
		return "", fmt.Errorf("%w: %s is not available on this board", ErrUnsupportedPin, candidate)
	}
	return candidate, nil
}

func digitSuffix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	rest := s[len(prefix):]
	if !isDigits(rest) {
		return "", false
	}
	return rest, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Board is a named provider of GPIO lines. The handle set is fixed at
// construction; OpenPin rejects handles outside of it.
type Board struct {
	name    string
	driver  PinDriver
	handles map[PinHandle]struct{}
}

// NewBoard creates a board backed by the given pin driver.
func NewBoard(name string, driver PinDriver) *Board {
	return &Board{
		name:    name,
		driver:  driver,
		handles: handleSet,
	}
}

// Name returns the board name used in dependency references.
func (b *Board) Name() string {
	return b.name
}

// Resolve maps a pin name onto this board's handle set.
func (b *Board) Resolve(pin string) (PinHandle, error) {
	return resolveAgainst(b.handles, pin)
}

// Handles returns the handles this board exposes, sorted by BCM number.
func (b *Board) Handles() []PinHandle {
	handles := make([]PinHandle, 0, len(b.handles))
	for h := range b.handles {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool {
		ni, _ := handles[i].BCM()
		nj, _ := handles[j].BCM()
		return ni < nj
	})
	return handles
}

// OpenPin opens the GPIO line behind the given handle.
func (b *Board) OpenPin(handle PinHandle) (Pin, error) {
	if _, ok := b.handles[handle]; !ok {
		return nil, fmt.Errorf("%w: %s is not available on board %s", ErrUnsupportedPin, handle, b.name)
	}
	pin, err := b.driver.OpenPin(handle)
	if err != nil {
		return nil, fmt.Errorf("opening %s on board %s: %w", handle, b.name, err)
	}
	return pin, nil
}

// Close releases the underlying pin driver.
func (b *Board) Close() error {
	return b.driver.Close()
}

var (
	defaultMu    sync.RWMutex
	defaultBoard *Board
)

// SetDefault installs the board used by sensors that are configured
// without an explicit board reference.
func SetDefault(b *Board) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBoard = b
}

// Default returns the process-wide default board, or nil when none has
// been installed yet.
func Default() *Board {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultBoard
}
