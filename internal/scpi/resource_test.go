// internal/scpi/resource_test.go
package scpi

import (
	"runtime"
	"testing"
)

func TestParseResource_Socket(t *testing.T) {
	r, err := ParseResource("TCPIP0::192.168.1.50::1394::SOCKET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Kind != ResourceSocket || r.Address != "192.168.1.50:1394" {
		t.Fatalf("got %+v", r)
	}

	if _, err := ParseResource("tcpip::host::5025::socket"); err != nil {
		t.Fatalf("lower case resource should parse: %v", err)
	}
}

func TestParseResource_Serial(t *testing.T) {
	r, err := ParseResource("ASRL3::INSTR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/dev/ttyS2"
	if runtime.GOOS == "windows" {
		want = "COM3"
	}
	if r.Kind != ResourceSerial || r.Address != want {
		t.Fatalf("got %+v want %s", r, want)
	}

	r, err = ParseResource("ASRL/dev/ttyUSB0::INSTR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Address != "/dev/ttyUSB0" {
		t.Fatalf("device path not kept: %q", r.Address)
	}
}

func TestParseResource_Unsupported(t *testing.T) {
	for _, name := range []string{
		"GPIB0::16::INSTR",
		"USB0::0x05E6::0x2100::1234::INSTR",
		"TCPIP0::10.0.0.1::inst0::INSTR",
		"TCPIP0::10.0.0.1::notaport::SOCKET",
		"ASRL0::INSTR",
		"",
	} {
		if _, err := ParseResource(name); !IsConnection(err) {
			t.Fatalf("%q: expected connection error, got %v", name, err)
		}
	}
}
