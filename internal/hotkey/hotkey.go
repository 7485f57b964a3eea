// Package hotkey watches for the quit key that stops the recognition loop.
package hotkey

import (
	"bufio"
	"context"
	"io"
	"strings"
	"unicode"

	"jordanella.com/tower-pilot/internal/logging"
)

// Watcher blocks until the quit key is pressed or ctx ends
type Watcher interface {
	Watch(ctx context.Context) (pressed bool, err error)
}

// Stop runs w in the background and calls cancel when the key is pressed
func Stop(ctx context.Context, w Watcher, cancel context.CancelFunc, logger *logging.Logger) {
	go func() {
		pressed, err := w.Watch(ctx)
		if err != nil {
			logger.Error("Hotkey watcher failed", err)
			return
		}
		if pressed {
			logger.Info("Quit key pressed, stopping after the current cycle")
			cancel()
		}
	}()
}

// LineWatcher treats a line consisting of the quit key as a press
type LineWatcher struct {
	r   io.Reader
	key rune
}

// NewLineWatcher reads lines from r, typically os.Stdin
func NewLineWatcher(r io.Reader, key rune) *LineWatcher {
	return &LineWatcher{r: r, key: unicode.ToLower(key)}
}

func (w *LineWatcher) Watch(ctx context.Context) (bool, error) {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(w.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case err := <-errs:
			// EOF without the key
			return false, err
		case line := <-lines:
			if strings.EqualFold(strings.TrimSpace(line), string(w.key)) {
				return true, nil
			}
		}
	}
}
