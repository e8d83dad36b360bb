package core

import "testing"

func TestEventBusRegisterFire(t *testing.T) {
	bus := NewEventBus()
	var got []uint32
	listener := &struct{}{}

	ok := bus.Register(EVENT_CODE_RESIZED, listener, func(code SystemEventCode, sender, l interface{}, data EventContext) bool {
		got = append(got, data.Data.U32[0], data.Data.U32[1])
		return true
	})
	if !ok {
		t.Fatal("first registration should succeed")
	}
	if bus.Register(EVENT_CODE_RESIZED, listener, func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }) {
		t.Error("duplicate listener should be rejected")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 800
	ctx.Data.U32[1] = 600
	if !bus.Fire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Error("event should be reported as handled")
	}
	if len(got) != 2 || got[0] != 800 || got[1] != 600 {
		t.Errorf("unexpected payload %v", got)
	}
	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Error("no listener registered for quit")
	}
}

func TestEventBusHandledStopsPropagation(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	first, second := &struct{ a int }{}, &struct{ b int }{}
	bus.Register(EVENT_CODE_APPLICATION_QUIT, first, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		calls++
		return true
	})
	bus.Register(EVENT_CODE_APPLICATION_QUIT, second, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		calls++
		return true
	})
	bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{})
	if calls != 1 {
		t.Errorf("handled event reached %d listeners", calls)
	}
}

func TestEventBusUnregister(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}
	fired := false
	bus.Register(EVENT_CODE_KEY_PRESSED, listener, func(SystemEventCode, interface{}, interface{}, EventContext) bool {
		fired = true
		return true
	})
	if !bus.Unregister(EVENT_CODE_KEY_PRESSED, listener) {
		t.Fatal("unregister should find the listener")
	}
	if bus.Unregister(EVENT_CODE_KEY_PRESSED, listener) {
		t.Error("second unregister should report nothing removed")
	}
	bus.Fire(EVENT_CODE_KEY_PRESSED, nil, EventContext{})
	if fired {
		t.Error("unregistered callback was invoked")
	}
}
