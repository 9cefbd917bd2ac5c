package cmd

import (
	"io"

	"github.com/cheggaaa/pb/v3"
	"github.com/slackpad/fetchphotos/core"
)

// progressObserver ticks a progress bar for every photo. Discovery is lazy
// so the total isn't known up front and the bar just counts.
type progressObserver struct {
	bar *pb.ProgressBar
}

func newProgressObserver(w io.Writer) *progressObserver {
	bar := pb.New(0)
	bar.SetWriter(w)
	bar.Start()
	return &progressObserver{bar: bar}
}

func (p *progressObserver) OnFileDone(o *core.Outcome) {
	p.bar.Increment()
}

func (p *progressObserver) Finish() {
	p.bar.Finish()
}
