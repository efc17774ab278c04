package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/capgen/pulse"
)

// progressBar renders L2 attachment progress. The bar is created on the
// first update because the total is only known once the outline is merged.
type progressBar struct {
	out io.Writer
	bar *pterm.ProgressbarPrinter
}

func newProgressBar(out io.Writer) *progressBar {
	return &progressBar{out: out}
}

// OnProgress implements pulse.ProgressObserver. Calls arrive serialized.
func (b *progressBar) OnProgress(p pulse.Progress) {
	if b.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(p.Total).
			WithTitle("Attaching L2 capabilities").
			WithWriter(b.out).
			Start()
		if err != nil {
			return
		}
		b.bar = bar
	}
	b.bar.UpdateTitle(progressTitle(p))
	b.bar.Increment()
}

// Stop clears the bar if one was started
func (b *progressBar) Stop() {
	if b.bar != nil {
		_, _ = b.bar.Stop()
	}
}

func progressTitle(p pulse.Progress) string {
	if p.Remaining <= 0 {
		return fmt.Sprintf("L2 %d/%d", p.Current, p.Total)
	}
	return fmt.Sprintf("L2 %d/%d, ~%s left", p.Current, p.Total, p.Remaining.Round(time.Second))
}

var _ pulse.ProgressObserver = (*progressBar)(nil)
