package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/occlusion/pkg/render"
	"github.com/taigrr/occlusion/pkg/visibility"
)

// progressBar eases its displayed fill toward the real progress with a
// critically damped spring.
type progressBar struct {
	Position float64
	velocity float64
	spring   harmonica.Spring
}

func newProgressBar(fps int) progressBar {
	return progressBar{
		// Frequency 6.0 settles within a few frames, damping 1.0 never overshoots.
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Update moves the bar one frame toward target, in [0, 1].
func (p *progressBar) Update(target float64) {
	p.Position, p.velocity = p.spring.Update(p.Position, p.velocity, target)
	p.Position = min(max(p.Position, 0), 1)
}

// Draw fills the first row of area proportionally to Position.
func (p *progressBar) Draw(scr uv.Screen, area uv.Rectangle) {
	filled := int(p.Position * float64(area.Dx()))
	for x := area.Min.X; x < area.Max.X; x++ {
		content := "░"
		if x-area.Min.X < filled {
			content = "█"
		}
		scr.SetCell(x, area.Min.Y, &uv.Cell{Content: content, Width: 1})
	}
}

// liveView draws each sample to the alternate screen as it is rendered.
type liveView struct {
	mu       sync.Mutex
	term     *uv.Terminal
	width    int
	height   int
	total    int
	bar      progressBar
	interval time.Duration
	last     time.Time
	cancel   context.CancelFunc
	err      error
}

// startLiveView takes over the terminal. Esc, q or ctrl+c call cancel, as
// does a failed redraw.
func startLiveView(fps, total int, cancel context.CancelFunc) (*liveView, error) {
	if fps < 1 {
		fps = 1
	}
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return nil, fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return nil, fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	v := &liveView{
		term:     term,
		width:    width,
		height:   height,
		total:    total,
		bar:      newProgressBar(fps),
		interval: time.Second / time.Duration(fps),
		cancel:   cancel,
	}

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				v.mu.Lock()
				v.width, v.height = ev.Width, ev.Height
				term.Erase()
				term.Resize(ev.Width, ev.Height)
				v.mu.Unlock()
			case uv.KeyPressEvent:
				if ev.MatchString("escape", "q", "ctrl+c") {
					cancel()
				}
			}
		}
	}()
	return v, nil
}

// frame shows one sample and holds it for the frame interval.
func (v *liveView) frame(info visibility.SampleInfo) {
	marks := visibility.ProjectVertices(info.MVP, info.Vertices, info.Depth, info.Epsilon)
	fb := render.DepthFrame(info.Depth, marks)

	v.mu.Lock()
	rows := max(v.height-2, 1)
	scale := min(float64(v.width)/float64(fb.Width), float64(2*rows)/float64(fb.Height))
	fb = fb.Resize(int(float64(fb.Width)*scale), int(float64(fb.Height)*scale))

	v.term.Clear()
	fb.Draw(v.term, uv.Rect(0, 0, v.width, rows))

	status := fmt.Sprintf("sample %d/%d  seen %d  total %d/%d  (esc to stop)",
		info.Index+1, v.total, info.Seen, info.Total, len(info.Vertices))
	uv.NewStyledString(status).Draw(v.term, uv.Rect(0, rows, v.width, 1))

	v.bar.Update(float64(info.Index+1) / float64(max(v.total, 1)))
	v.bar.Draw(v.term, uv.Rect(0, rows+1, v.width, 1))
	if err := v.term.Display(); err != nil && v.err == nil {
		v.err = fmt.Errorf("live view: display: %w", err)
		v.cancel()
	}
	v.mu.Unlock()

	if elapsed := time.Since(v.last); elapsed < v.interval {
		time.Sleep(v.interval - elapsed)
	}
	v.last = time.Now()
}

// stop restores the terminal and returns the first drawing or shutdown
// error.
func (v *liveView) stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.term.ExitAltScreen()
	v.term.ShowCursor()
	if err := v.term.Shutdown(context.Background()); err != nil && v.err == nil {
		v.err = fmt.Errorf("live view: shutdown: %w", err)
	}
	return v.err
}
