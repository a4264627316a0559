package capture

import (
	"fmt"
	"strconv"

	"github.com/smazurov/vcapture/pkg/framestore"
)

// ParseFrameArgs interprets the optional frame index argument of textual
// callers. No arguments selects the armed buffer (explicit is false); a
// single integer selects that buffer. Anything else is rejected with
// ErrInvalidArgument.
func ParseFrameArgs(args []string) (index int, explicit bool, err error) {
	switch len(args) {
	case 0:
		return 0, false, nil
	case 1:
		index, err = strconv.Atoi(args[0])
		if err != nil {
			return 0, false, newError(ErrCodeInvalidArgument, fmt.Sprintf("frame index %q is not an integer", args[0]), nil)
		}
		return index, true, nil
	default:
		return 0, false, newError(ErrCodeInvalidArgument, fmt.Sprintf("expected at most one frame index, got %d arguments", len(args)), nil)
	}
}

// ReadFrame resolves args with ParseFrameArgs and returns the selected view.
func (c *Controller) ReadFrame(args ...string) (framestore.View, error) {
	index, explicit, err := ParseFrameArgs(args)
	if err != nil {
		return framestore.View{}, err
	}
	if !explicit {
		return c.Frame()
	}
	return c.FrameAt(index)
}
