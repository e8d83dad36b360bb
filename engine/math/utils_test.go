package math

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp[uint32](5000, 1, 4096); got != 4096 {
		t.Errorf("Clamp above = %d", got)
	}
	if got := Clamp[uint32](0, 1, 4096); got != 1 {
		t.Errorf("Clamp below = %d", got)
	}
	if got := Clamp(0.5, 0.0, 1.0); got != 0.5 {
		t.Errorf("Clamp inside = %f", got)
	}
}

func TestMax(t *testing.T) {
	if Max(-3, 0) != 0 || Max(7, 2) != 7 {
		t.Error("Max returned the smaller value")
	}
}

func TestSaturatingAdd(t *testing.T) {
	if got := SaturatingAdd[uint32](2, 1); got != 3 {
		t.Errorf("SaturatingAdd = %d", got)
	}
	if got := SaturatingAdd[uint32](^uint32(0)-1, 5); got != ^uint32(0) {
		t.Errorf("SaturatingAdd overflow = %d", got)
	}
}
