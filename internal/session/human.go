package session

import (
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Pause sleeps for a random duration in [min, max). Form interaction
// uses it between steps so the timing never looks machine-regular.
func Pause(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// TypeHuman fills a field one keystroke at a time with irregular
// delays instead of setting the value in one write.
func TypeHuman(page playwright.Page, selector, text string) error {
	if err := page.Click(selector); err != nil {
		return err
	}
	Pause(150*time.Millisecond, 400*time.Millisecond)
	return page.Type(selector, text, playwright.PageTypeOptions{
		Delay: playwright.Float(float64(50 + rand.Intn(100))),
	})
}

// MoveMouse wanders the cursor to a random viewport position.
func MoveMouse(page playwright.Page) {
	size := page.ViewportSize()
	if size == nil {
		return
	}
	x := rand.Intn(size.Width)
	y := rand.Intn(size.Height)
	page.Mouse().Move(float64(x), float64(y), playwright.MouseMoveOptions{
		Steps: playwright.Int(rand.Intn(5) + 5),
	})
}

// ClickHuman moves onto the element before clicking it with a short
// press delay.
func ClickHuman(page playwright.Page, handle playwright.ElementHandle) error {
	box, err := handle.BoundingBox()
	if err == nil && box != nil {
		page.Mouse().Move(box.X+box.Width/2, box.Y+box.Height/2, playwright.MouseMoveOptions{
			Steps: playwright.Int(10),
		})
		Pause(100*time.Millisecond, 300*time.Millisecond)
	}
	return handle.Click(playwright.ElementHandleClickOptions{
		Delay: playwright.Float(float64(rand.Intn(100) + 50)),
	})
}
