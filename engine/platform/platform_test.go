package platform

import (
	"testing"

	"github.com/spaghettifunk/vulkantesting/engine/core"
)

func TestNewRejectsBadConfig(t *testing.T) {
	events := core.NewEventBus()
	logger := core.NewDiscardLogger()

	if _, err := New(BackendGLFW, WindowConfig{Title: "t", Width: 0, Height: 600}, events, logger); err == nil {
		t.Fatal("expected an error for a zero width window")
	}
	if _, err := New("wayland-direct", WindowConfig{Title: "t", Width: 800, Height: 600}, events, logger); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestFireHelpers(t *testing.T) {
	events := core.NewEventBus()
	var resized [2]uint32
	var key core.KeyCode
	var pressed, quit bool

	events.Register(core.EVENT_CODE_RESIZED, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		resized = [2]uint32{data.Data.U32[0], data.Data.U32[1]}
		return true
	})
	events.Register(core.EVENT_CODE_KEY_PRESSED, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		key = core.KeyCode(data.Data.U16[0])
		pressed = true
		return true
	})
	events.Register(core.EVENT_CODE_APPLICATION_QUIT, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		quit = true
		return true
	})

	fireResized(events, nil, 1024, 768)
	fireKey(events, nil, core.KEY_ESCAPE, true)
	fireKey(events, nil, core.KEY_SPACE, false)
	fireQuit(events, nil)

	if resized != [2]uint32{1024, 768} {
		t.Errorf("resized = %v", resized)
	}
	if !pressed || key != core.KEY_ESCAPE {
		t.Errorf("key pressed = %v, key = %#x", pressed, key)
	}
	if !quit {
		t.Error("quit event was not fired")
	}
}

func TestClampSize(t *testing.T) {
	if w, h := clampSize(-1, 10); w != 0 || h != 10 {
		t.Errorf("clampSize(-1, 10) = %d, %d", w, h)
	}
	if w, h := clampSize(800, 600); w != 800 || h != 600 {
		t.Errorf("clampSize(800, 600) = %d, %d", w, h)
	}
}
