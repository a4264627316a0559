//go:build !linux

package xlnx

import (
	"errors"
	"runtime"
)

var defaultMapper Mapper = func(uint64, int) (Regs, error) {
	return nil, errors.New("register mapping not supported on " + runtime.GOOS)
}
