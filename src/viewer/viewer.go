// Package viewer shows rendered figures and frame sequences in a desktop window.
// Show and Play block until the window is closed.
package viewer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/iafilius/FragScope/src/logging"
)

const appID = "io.github.iafilius.fragscope"

// dark theme wrapper
type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}
func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

// WindowSize scales an image size to fit the screen budget while keeping its aspect ratio.
func WindowSize(imgW, imgH int) (int, int) {
	const maxW, maxH, minW = 1400, 900, 640
	if imgW <= 0 || imgH <= 0 {
		return 1100, 800
	}
	w, h := float64(imgW), float64(imgH)
	scale := 1.0
	if w < minW {
		scale = minW / w
	}
	if w*scale > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	return int(w*scale + 0.5), int(h*scale + 0.5)
}

func newWindow(title string, first image.Image) (fyne.App, fyne.Window, *canvas.Image) {
	a := app.NewWithID(appID)
	a.Settings().SetTheme(&darkTheme{})
	w := a.NewWindow(title)
	img := canvas.NewImageFromImage(first)
	img.FillMode = canvas.ImageFillContain
	b := first.Bounds()
	ww, wh := WindowSize(b.Dx(), b.Dy())
	w.Resize(fyne.NewSize(float32(ww), float32(wh)))
	return a, w, img
}

// Show displays one image with an export button.
func Show(title string, img image.Image) {
	_, w, c := newWindow(title, img)
	export := widget.NewButton("Export PNG", func() { exportPNG(w, c, "fragscope.png") })
	w.SetContent(container.NewBorder(container.NewHBox(export), nil, nil, nil, c))
	w.ShowAndRun()
}

// FrameSource returns the next frame of a sequence and io.EOF after the last one.
type FrameSource func() (image.Image, error)

// Play pulls frames from next, one per delay, and stays on the last one. Frames
// are produced on demand, so only the one on screen is held. total is used for
// the frame counter; zero leaves it open-ended. Play returns once the window is
// closed and next is no longer called, with the number of frames shown and the
// first error next reported other than io.EOF.
func Play(title string, total int, next FrameSource, delay time.Duration) (int, error) {
	first, err := next()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	_, w, c := newWindow(title, first)
	status := widget.NewLabel(frameLabel(0, total))
	export := widget.NewButton("Export PNG", func() { exportPNG(w, c, "fragscope-frame.png") })
	w.SetContent(container.NewBorder(container.NewHBox(export, status), nil, nil, nil, c))

	done := make(chan struct{})
	stop := sync.OnceFunc(func() { close(done) })
	w.SetOnClosed(stop)
	var (
		shown   int
		pumpErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		shown, pumpErr = pump(next, done, delay, 1, func(frame image.Image, i int) {
			label := frameLabel(i, total)
			fyne.Do(func() {
				c.Image = frame
				c.Refresh()
				status.SetText(label)
			})
		})
	}()
	w.ShowAndRun()
	stop()
	<-finished
	return shown, pumpErr
}

// pump calls next once per tick and hands each frame to show until next
// reports io.EOF or an error, or done is closed. shown counts frames already
// on screen; the updated count is returned.
func pump(next FrameSource, done <-chan struct{}, delay time.Duration, shown int, show func(image.Image, int)) (int, error) {
	t := time.NewTicker(delay)
	defer t.Stop()
	for {
		select {
		case <-done:
			return shown, nil
		case <-t.C:
		}
		frame, err := next()
		if errors.Is(err, io.EOF) {
			return shown, nil
		}
		if err != nil {
			logging.Errorf("[viewer] frame %d: %v", shown+1, err)
			return shown, err
		}
		select {
		case <-done:
			return shown, nil
		default:
		}
		show(frame, shown)
		shown++
	}
}

func frameLabel(i, n int) string {
	if n <= 0 {
		return fmt.Sprintf("frame %d", i+1)
	}
	return fmt.Sprintf("frame %d/%d", i+1, n)
}

// export PNG
func exportPNG(w fyne.Window, img *canvas.Image, defaultName string) {
	if w == nil || img == nil || img.Image == nil {
		dialog.ShowInformation("Export", "No chart to export.", w)
		return
	}
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if err := png.Encode(wc, img.Image); err != nil {
			logging.Errorf("[viewer] export %s: %v", wc.URI(), err)
		}
	}, w)
	fs.SetFileName(defaultName)
	fs.Show()
}
