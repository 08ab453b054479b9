// Package progress renders a terminal progress bar for long-running build
// runs. A nil *Bar is valid and does nothing, so callers never have to guard
// their updates.
package progress

import (
	"github.com/schollz/progressbar/v3"
)

type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a bar with the given description, or nil when disabled.
func New(enabled bool, description string) *Bar {
	if !enabled {
		return nil
	}
	return &Bar{
		bar: progressbar.NewOptions(0,
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) AddMax(n int) {
	if b == nil {
		return
	}
	b.bar.ChangeMax(b.bar.GetMax() + n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
