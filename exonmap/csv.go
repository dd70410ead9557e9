package exonmap

import (
	"bufio"
	"io"
	"strings"
)

// csvReader reads comma-separated rows with no quoting and no escaping. A
// trailing comma with nothing following it produces one extra empty field,
// matching the behavior of istream-based line/field splitting in the
// original coordinate-file reader. A final line with no trailing newline is
// still parsed.
type csvReader struct {
	s   *bufio.Scanner
	err error
}

func newCSVReader(r io.Reader) *csvReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &csvReader{s: s}
}

// next returns the next row's fields, or nil, false at end of stream.
func (c *csvReader) next() ([]string, bool) {
	if !c.s.Scan() {
		c.err = c.s.Err()
		return nil, false
	}
	line := c.s.Text()
	fields := strings.Split(line, ",")
	// strings.Split already yields a trailing "" field for a line ending in
	// ",", so no special-casing is needed here -- unlike the stringstream
	// approach in the source, which has to detect that case explicitly.
	return fields, true
}

func (c *csvReader) Err() error {
	return c.err
}
