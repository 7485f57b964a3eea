//go:build !windows

package hotkey

import "os"

// New returns a watcher that reads the quit key from standard input
func New(key rune) (Watcher, error) {
	return NewLineWatcher(os.Stdin, key), nil
}
