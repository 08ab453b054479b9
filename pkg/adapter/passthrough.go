package adapter

import (
	"context"
	"io"
)

// Passthrough returns an adapter that forwards content unchanged in both
// directions. It is the default binding for the natively handled file types.
func Passthrough(name string) Adapter {
	return passthrough(name)
}

type passthrough string

func (p passthrough) Name() string { return string(p) }

func (passthrough) Transform(_ context.Context, r io.Reader) (io.Reader, error) {
	return r, nil
}

func (passthrough) Reverse(_ context.Context, r io.Reader) (io.Reader, error) {
	return r, nil
}
