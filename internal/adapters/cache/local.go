package cache

import (
	"context"
	"fmt"
	"os"
)

// Local keeps the cache in a directory shared by runs on one host.
type Local struct {
	dir string
}

func (l *Local) Type() string { return TypeLocal }

func (l *Local) ReadChannel() string {
	return channel(TypeLocal, "src="+l.dir)
}

func (l *Local) WriteChannel() string {
	return channel(TypeLocal, "dest="+l.dir, "mode=max")
}

// Available makes sure the directory exists.
func (l *Local) Available(context.Context) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	return nil
}
