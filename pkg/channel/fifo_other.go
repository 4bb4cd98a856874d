//go:build !unix

package channel

import "fmt"

// Open always fails: named pipes with these semantics need a unix platform.
func (o *FIFOOpener) Open(mode Mode) (Channel, error) {
	return nil, fmt.Errorf("%w: named pipes require a unix platform", ErrUnavailable)
}
