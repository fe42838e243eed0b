// internal/status/encode_test.go
package status

import "testing"

func TestEncodeLayout(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthError, LastErrorCode: 2, SecondsInError: 9}, "DMM-A")

	if len(regs) != SlotsPerDevice {
		t.Fatalf("expected %d regs, got %d", SlotsPerDevice, len(regs))
	}
	if regs[SlotHealthCode] != HealthError || regs[SlotLastErrorCode] != 2 || regs[SlotSecondsInError] != 9 {
		t.Fatalf("live slots wrong: %v", regs[:3])
	}
	for i := SlotReservedStart; i <= SlotReservedEnd; i++ {
		if regs[i] != 0 {
			t.Fatalf("reserved slot %d not zero: %d", i, regs[i])
		}
	}

	// "DM" "M-" "A\x00"
	want := []uint16{0x444D, 0x4D2D, 0x4100, 0}
	for i, w := range want {
		if regs[SlotDeviceNameStart+i] != w {
			t.Fatalf("name slot %d: got=%#04x want=%#04x", i, regs[SlotDeviceNameStart+i], w)
		}
	}
}

func TestEncodeDeviceNameTruncatesAndSanitizes(t *testing.T) {
	regs := EncodeDeviceName("ab\tcdefghijklmnopqrstuvwxyz")

	if len(regs) != SlotDeviceNameSlots {
		t.Fatalf("expected %d regs, got %d", SlotDeviceNameSlots, len(regs))
	}
	if regs[1] != uint16('?')<<8|uint16('c') {
		t.Fatalf("tab should be replaced: %#04x", regs[1])
	}
	// 16th char is 'o' (index 15 of the sanitized string)
	if regs[7] != uint16('n')<<8|uint16('o') {
		t.Fatalf("expected truncation after 16 chars: %#04x", regs[7])
	}
}
