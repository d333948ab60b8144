package core

// FrameState advances once per frame. CurrentViewIndex walks the views of
// the frame being rendered and resets at the start of the next one.
type FrameState struct {
	Time             float64
	DeltaTime        float64
	CurrentViewIndex int
	Frame            uint64

	started bool
}

// Advance starts a new frame at time now (seconds).
func (f *FrameState) Advance(now float64) {
	if f.started {
		f.DeltaTime = now - f.Time
		if f.DeltaTime < 0 {
			f.DeltaTime = 0
		}
	} else {
		f.DeltaTime = 0
		f.started = true
	}
	f.Time = now
	f.CurrentViewIndex = 0
	f.Frame++
}

func (f *FrameState) BeginView(i int) {
	f.CurrentViewIndex = i
}

// InputState is a snapshot of the user input relevant to the frame loop,
// polled once per frame.
type InputState struct {
	Exit  bool
	Debug bool
	// Capture is set on the frame the capture key goes down.
	Capture bool

	Forward, Back, Left, Right bool

	MouseDX, MouseDY float64
	Scroll           float64
}
