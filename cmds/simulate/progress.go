package simulate

import (
	"time"

	"github.com/cheggaaa/pb/v3"
)

type maybeProgress struct {
	bar *pb.ProgressBar
}

// a progress bar is only worth drawing for longer runs
func newProgress(n int, show bool) *maybeProgress {
	mp := &maybeProgress{}
	if show && n > 1 {
		mp.bar = pb.ProgressBarTemplate(`{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{etime . }}`).New(n)
		mp.bar.Set("prefix", "ballot boxes ")
		mp.bar.SetRefreshRate(time.Second)
	}
	return mp
}

func (mp *maybeProgress) Start() {
	if mp.bar != nil {
		mp.bar.Start()
	}
}

func (mp *maybeProgress) Increment() {
	if mp.bar != nil {
		mp.bar.Increment()
	}
}

func (mp *maybeProgress) Finish() {
	if mp.bar != nil {
		mp.bar.Finish()
	}
}
