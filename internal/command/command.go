// Package command parses the line-oriented operator command surface of the
// actuator node.
package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies an operator command.
type Kind int

const (
	KindOn Kind = iota
	KindOff
	KindDuty
	KindThreshold
	KindStatus
)

// Command is one parsed operator command. Numeric arguments are already
// clamped to their valid domain.
type Command struct {
	Kind      Kind
	Duty      int     // KindDuty, clamped [0,100]
	Threshold float64 // KindThreshold, clamped >= 0
}

// Parse errors. Malformed input never mutates state; the caller responds
// with Usage().
var (
	ErrUnknown     = errors.New("command: unknown command")
	ErrBadArgument = errors.New("command: bad argument")
)

// Usage is the response to unrecognized or malformed input.
const Usage = "usage: ON | OFF | DUTY <0-100> | THR <lpm> | STATUS"

// Parse interprets one line. Keywords are case-insensitive; out-of-range
// numeric arguments are accepted and clamped rather than rejected.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrUnknown
	}

	switch strings.ToUpper(fields[0]) {
	case "ON":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: ON takes no argument", ErrBadArgument)
		}
		return Command{Kind: KindOn}, nil

	case "OFF":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: OFF takes no argument", ErrBadArgument)
		}
		return Command{Kind: KindOff}, nil

	case "DUTY":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("%w: DUTY takes one integer", ErrBadArgument)
		}
		p, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %q is not an integer", ErrBadArgument, fields[1])
		}
		if p < 0 {
			p = 0
		} else if p > 100 {
			p = 100
		}
		return Command{Kind: KindDuty, Duty: p}, nil

	case "THR":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("%w: THR takes one number", ErrBadArgument)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Command{}, fmt.Errorf("%w: %q is not a number", ErrBadArgument, fields[1])
		}
		if v < 0 {
			v = 0
		}
		return Command{Kind: KindThreshold, Threshold: v}, nil

	case "STATUS":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("%w: STATUS takes no argument", ErrBadArgument)
		}
		return Command{Kind: KindStatus}, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknown, fields[0])
}
