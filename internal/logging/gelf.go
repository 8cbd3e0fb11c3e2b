package logging

import (
	"fmt"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFWriter returns a UDP writer that ships log lines to Graylog at addr.
func NewGELFWriter(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("connect graylog %s: %w", addr, err)
	}
	if host, err := os.Hostname(); err == nil {
		w.Facility = "trafficsim@" + host
	} else {
		w.Facility = "trafficsim"
	}
	return w, nil
}
