// Package parser converts raw command arguments into engine inputs.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shubham78763/trafficSignal/internal/geo"
	"github.com/shubham78763/trafficSignal/internal/util"
	"github.com/shubham78763/trafficSignal/pkg/core"
)

// ErrMissingArgs is returned when a command has fewer arguments than it needs.
var ErrMissingArgs = errors.New("missing arguments")

// parseUintFromFloat parses a string that may be an integer ("32") or float
// ("32.00") into uint64. Web clients frequently serialize numbers as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// Parser provides pure []string -> engine input conversion.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func needArgs(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrMissingArgs, what, n, len(args))
	}
	return nil
}

// ParseNewIntersection parses [name, location, "lat,lng"]. Location and
// coordinates are optional.
func (p *Parser) ParseNewIntersection(args []string) (core.NewIntersection, error) {
	args = util.CleanArgs(args)
	if err := needArgs(args, 1, "intersection create"); err != nil {
		return core.NewIntersection{}, err
	}
	if args[0] == "" {
		return core.NewIntersection{}, errors.New("intersection name is empty")
	}

	n := core.NewIntersection{Name: args[0]}
	if len(args) > 1 {
		n.Location = args[1]
	}
	if len(args) > 2 {
		c, err := geo.ParseCoordinates(args[2])
		if err != nil {
			return core.NewIntersection{}, fmt.Errorf("intersection coordinates: %w", err)
		}
		n.Coordinates = c
	}
	return n, nil
}

// ParseIntersectionUpdate parses [id, name, location, "lat,lng"]. Empty name
// or location keep the current value.
func (p *Parser) ParseIntersectionUpdate(args []string) (string, core.NewIntersection, error) {
	args = util.CleanArgs(args)
	if err := needArgs(args, 2, "intersection update"); err != nil {
		return "", core.NewIntersection{}, err
	}
	id := args[0]
	if id == "" {
		return "", core.NewIntersection{}, errors.New("intersection id is empty")
	}
	n := core.NewIntersection{Name: args[1]}
	if len(args) > 2 {
		n.Location = args[2]
	}
	if len(args) > 3 {
		c, err := geo.ParseCoordinates(args[3])
		if err != nil {
			return "", core.NewIntersection{}, fmt.Errorf("intersection coordinates: %w", err)
		}
		n.Coordinates = c
	}
	return id, n, nil
}

// ParseIntersectionID returns the first argument as an intersection id.
func (p *Parser) ParseIntersectionID(args []string) (string, error) {
	args = util.CleanArgs(args)
	if err := needArgs(args, 1, "intersection id"); err != nil {
		return "", err
	}
	if args[0] == "" {
		return "", errors.New("intersection id is empty")
	}
	return args[0], nil
}

// ParseHistoryQuery parses an optional [limit, intersectionId]. The limit
// defaults to def and is capped at maxLimit.
func (p *Parser) ParseHistoryQuery(args []string, def, maxLimit int) (limit int, id string, err error) {
	args = util.CleanArgs(args)
	limit = def
	if len(args) > 0 && args[0] != "" {
		n, err := parseUintFromFloat(args[0])
		if err != nil {
			return 0, "", fmt.Errorf("history limit: %w", err)
		}
		limit = int(n)
	}
	if limit <= 0 || limit > maxLimit {
		p.logger.Debug("history limit clamped", "requested", limit, "max", maxLimit)
		limit = maxLimit
	}
	if len(args) > 1 {
		id = args[1]
	}
	return limit, id, nil
}
