package collector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// RPMClockHz is the RPM sleep timer rate in ticks per millisecond (19.2 MHz).
const RPMClockHz = 19200

// CounterNames is the ordered catalog of counters read from the RPM stats files.
// Position is the destination index in the counter table; the repeated
// xo_accumulated_duration/xo_count pairs belong to APSS, MPSS and LPASS in that order.
var CounterNames = []string{
	"vlow_count",
	"accumulated_vlow_time",
	"vmin_count",
	"accumulated_vmin_time",
	"xo_accumulated_duration",
	"xo_count",
	"xo_accumulated_duration",
	"xo_count",
	"xo_accumulated_duration",
	"xo_count",
}

const xoDurationCounter = "xo_accumulated_duration"

// Encoding is the numeric base a stats file reports its values in.
type Encoding int

const (
	Decimal Encoding = iota
	// Hex sources report durations in RPM sleep ticks.
	Hex
)

// StatsSource is a debugfs stats file and the encoding of its values.
type StatsSource struct {
	Path     string
	Encoding Encoding
}

// ErrSourceUnavailable is matched by every error returned when a stats file cannot be opened.
var ErrSourceUnavailable = errors.New("stats source unavailable")

// SourceUnavailableError reports a stats file that could not be opened.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// Errno returns the OS error code from the failed open, or 0 if there is none.
func (e *SourceUnavailableError) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

// ExtractStats reads up to count counters from src into table[start:start+count].
//
// Lines are matched strictly in catalog order: a line whose name is not the
// one expected at the current index is skipped without advancing. Counters
// that are never found leave their slot untouched.
func ExtractStats(table []uint64, src StatsSource, count, start int) error {
	end := start + count
	if start < 0 || count < 0 || end > len(table) || end > len(CounterNames) {
		return fmt.Errorf("counter range [%d, %d) out of bounds", start, end)
	}

	f, err := os.Open(src.Path)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return &SourceUnavailableError{Path: src.Path, Err: err}
	}
	defer f.Close()

	index := start
	r := bufio.NewReader(f)
	for index < end {
		line, err := r.ReadString('\n')
		if line != "" {
			index = matchCounter(table, line, index, src.Encoding)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", src.Path, err)
		}
	}
	return nil
}

// matchCounter stores the value on line if it carries the counter expected at
// index, and returns the next index to look for.
func matchCounter(table []uint64, line string, index int, enc Encoding) int {
	name := CounterNames[index]
	if !strings.HasPrefix(strings.TrimLeft(line, " \t"), name) {
		return index
	}
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return index
	}

	value := parseCounter(line[colon+1:], enc)
	if enc == Hex && name == xoDurationCounter {
		value /= RPMClockHz
	}
	table[index] = value
	return index + 1
}

// parseCounter parses the leading number of s, ignoring leading whitespace and
// anything after the digits. Unparseable text yields 0.
func parseCounter(s string, enc Encoding) uint64 {
	s = strings.TrimLeft(s, " \t\r\n")
	base := 10
	if enc == Hex {
		base = 16
		if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s = s[2:]
		}
	}

	n := 0
	for n < len(s) && isDigit(s[n], base) {
		n++
	}
	v, err := strconv.ParseUint(s[:n], base, 64)
	if err != nil {
		return 0
	}
	return v
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && c >= 'a' && c <= 'f':
		return true
	case base == 16 && c >= 'A' && c <= 'F':
		return true
	}
	return false
}
