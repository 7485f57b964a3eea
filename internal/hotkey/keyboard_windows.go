//go:build windows

package hotkey

import (
	"context"
	"fmt"
	"unicode"

	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/types"
)

// KeyboardWatcher uses a low-level keyboard hook so the key works while the
// game window has focus
type KeyboardWatcher struct {
	vk types.VKCode
}

// New returns the global keyboard hook watcher
func New(key rune) (Watcher, error) {
	vk, err := virtualKey(key)
	if err != nil {
		return nil, err
	}
	return &KeyboardWatcher{vk: vk}, nil
}

func (w *KeyboardWatcher) Watch(ctx context.Context) (bool, error) {
	eventChan := make(chan types.KeyboardEvent, 100)
	if err := keyboard.Install(nil, eventChan); err != nil {
		return false, fmt.Errorf("failed to install keyboard hook: %w", err)
	}
	defer keyboard.Uninstall()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case event := <-eventChan:
			if event.Message == types.WM_KEYDOWN && event.VKCode == w.vk {
				return true, nil
			}
		}
	}
}

// virtualKey maps letters and digits onto their virtual key codes
func virtualKey(key rune) (types.VKCode, error) {
	key = unicode.ToUpper(key)
	if (key >= 'A' && key <= 'Z') || (key >= '0' && key <= '9') {
		return types.VKCode(key), nil
	}
	return 0, fmt.Errorf("quit key %q has no virtual key mapping", key)
}
