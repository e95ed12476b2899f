// Package puzzle reads factory manuals: one machine per line, written as an
// optional indicator diagram, a list of button wirings, and the joltage
// targets, e.g.
//
//	[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}
package puzzle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitrdm/joltage/pkg/joltage"
)

var (
	// ErrSyntax is wrapped by every malformed-line error.
	ErrSyntax = errors.New("puzzle: syntax error")

	// ErrShape is returned when a line's parts disagree on the number of
	// counters.
	ErrShape = errors.New("puzzle: inconsistent machine shape")
)

// ParseError reports the line a parse failure occurred on.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads every machine from r. Blank lines and lines starting with '#'
// are skipped.
func Parse(r io.Reader) ([]joltage.Machine, error) {
	var machines []joltage.Machine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		m, err := ParseLine(text)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: text, Err: err}
		}
		machines = append(machines, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manual: %w", err)
	}
	return machines, nil
}

// ParseLine parses a single machine description.
func ParseLine(line string) (joltage.Machine, error) {
	var m joltage.Machine
	haveJoltages := false

	for _, field := range strings.Fields(line) {
		if len(field) < 2 {
			return m, fmt.Errorf("%w: unexpected token %q", ErrSyntax, field)
		}
		body := field[1 : len(field)-1]
		switch first, last := field[0], field[len(field)-1]; {
		case first == '[' && last == ']':
			if m.Lights != nil || len(m.Buttons) > 0 || haveJoltages {
				return m, fmt.Errorf("%w: indicator diagram must come first", ErrSyntax)
			}
			lights, err := parseDiagram(body)
			if err != nil {
				return m, err
			}
			m.Lights = lights
		case first == '(' && last == ')':
			if haveJoltages {
				return m, fmt.Errorf("%w: button after joltage targets", ErrSyntax)
			}
			idx, err := parseInts(body)
			if err != nil {
				return m, err
			}
			m.Buttons = append(m.Buttons, idx)
		case first == '{' && last == '}':
			if haveJoltages {
				return m, fmt.Errorf("%w: duplicate joltage targets", ErrSyntax)
			}
			vals, err := parseInts(body)
			if err != nil {
				return m, err
			}
			m.Joltages = vals
			haveJoltages = true
		default:
			return m, fmt.Errorf("%w: unexpected token %q", ErrSyntax, field)
		}
	}

	if !haveJoltages {
		return m, fmt.Errorf("%w: missing joltage targets", ErrSyntax)
	}
	if m.Lights != nil && len(m.Lights) != len(m.Joltages) {
		return m, fmt.Errorf("%w: %d lights but %d joltage targets", ErrShape, len(m.Lights), len(m.Joltages))
	}
	for j, b := range m.Buttons {
		for _, i := range b {
			if i >= len(m.Joltages) {
				return m, fmt.Errorf("%w: button %d wired to counter %d of %d", ErrShape, j, i, len(m.Joltages))
			}
		}
	}
	return m, nil
}

func parseDiagram(s string) ([]bool, error) {
	lights := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '#':
			lights[i] = true
		case '.':
		default:
			return nil, fmt.Errorf("%w: bad indicator %q", ErrSyntax, c)
		}
	}
	return lights, nil
}

func parseInts(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: negative value %d", ErrSyntax, v)
		}
		out[i] = v
	}
	return out, nil
}
