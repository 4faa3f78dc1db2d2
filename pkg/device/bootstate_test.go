// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device_test

import (
	"testing"

	"github.com/versioduo/V2Device/pkg/device"
	"github.com/versioduo/V2Device/pkg/virtual"
)

func TestBootState_OneShot(t *testing.T) {
	cell := virtual.NewBootCell()
	boot := device.NewBootState(cell)

	boot.Set(5)

	// The cell survives a warm reset untouched; the next boot reads the
	// value exactly once.
	if ports, ok := boot.ReadAndClear(); !ok || ports != 5 {
		t.Errorf("expected 5 after warm reset, got %d/%v", ports, ok)
	}

	if _, ok := boot.ReadAndClear(); ok {
		t.Error("a value must never be honored twice")
	}
}

func TestBootState_ColdStart(t *testing.T) {
	cell := virtual.NewBootCell()
	boot := device.NewBootState(cell)

	boot.Set(5)
	cell.Scramble()

	if _, ok := boot.ReadAndClear(); ok {
		t.Error("a cold start must not honor the stored byte")
	}
}

func TestBootState_DefaultPortCount(t *testing.T) {
	// 0 and 1 mean "no override requested".
	for _, ports := range []uint8{0, 1} {
		cell := virtual.NewBootCell()
		boot := device.NewBootState(cell)

		boot.Set(ports)
		if _, ok := boot.ReadAndClear(); ok {
			t.Errorf("port count %d must not be honored", ports)
		}
	}
}

func TestBootState_RebootCycle(t *testing.T) {
	board := virtual.NewBoard()
	d := startDevice(t, testOptions(board))

	request(t, d, `{"com.versioduo.device":{"method":"reboot","ports":5}}`)

	if board.Resetter.Requests != 1 {
		t.Fatalf("expected a reset, got %d", board.Resetter.Requests)
	}
	if len(board.Transport.Frames) != 0 {
		t.Error("reboot must not reply")
	}

	// The next boot honors the carried port count over the configured one.
	next := startDevice(t, testOptions(board))
	ports := next.Ports()
	if ports.Reboot != 5 || ports.Current != 5 {
		t.Errorf("expected carried port count, got %+v", ports)
	}

	// One-shot: the boot after that falls back to the configuration.
	final := startDevice(t, testOptions(board))
	ports = final.Ports()
	if ports.Reboot != 0 || ports.Current != 1 {
		t.Errorf("carried port count honored twice: %+v", ports)
	}
}
