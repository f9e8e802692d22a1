package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/geket/lamella/internal/config"
)

var ignoreModsOnce sync.Once

// GrabBindings installs a global grab for every configured key chord,
// dispatching the bound command line. Chords that fail to grab are
// logged and skipped so one bad binding never takes the rest down.
func (c *Connection) GrabBindings(bindings []config.Binding, log *slog.Logger, dispatch func(command string)) {
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(c.XUtil)
	})

	for _, b := range bindings {
		if err := c.grab(b.Keys, b.Command, dispatch); err != nil {
			log.Warn("failed to grab key binding", "keys", b.Keys, "command", b.Command, "error", err)
			continue
		}
		log.Debug("key binding grabbed", "keys", b.Keys, "command", b.Command)
	}
}

func (c *Connection) grab(keys, command string, dispatch func(string)) error {
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		dispatch(command)
	}).Connect(c.XUtil, c.Root, keys, true)
	if err != nil {
		return fmt.Errorf("grab %s: %w", keys, err)
	}
	return nil
}

// UngrabAll releases every key grab, used before re-grabbing on config
// reload.
func (c *Connection) UngrabAll() {
	keybind.Detach(c.XUtil, c.Root)
}

// configureIgnoreMods makes grabs fire regardless of CapsLock, NumLock
// and ScrollLock state by registering every combination of those lock
// masks as ignorable.
func configureIgnoreMods(xu *xgbutil.XUtil) {
	caps := uint16(xproto.ModMaskLock)
	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := map[uint16]struct{}{0: {}}
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
