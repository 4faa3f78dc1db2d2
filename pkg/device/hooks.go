// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package device

// Hooks is the capability interface for device-specific behavior. The core
// calls into it, it never calls back into the core. Embed NoopHooks to
// implement only what the device needs.
type Hooks interface {
	// HandleInit runs after the configuration is read, before USB comes up.
	HandleInit()

	// HandleLoop runs once per servicing iteration.
	HandleLoop()

	// HandleSwitchChannel switches the device to the given channel.
	HandleSwitchChannel(channel int)

	// ImportConfiguration reads device-specific values from a
	// writeConfiguration request.
	ImportConfiguration(config map[string]any)

	// ExportMetadata adds device-specific properties to the reply's
	// metadata section.
	ExportMetadata(json map[string]any)

	// ExportSystem adds device-specific state to the reply's system
	// section.
	ExportSystem(json map[string]any)

	// ExportSettings returns the configuration editor sections.
	ExportSettings() []any

	// ExportConfiguration adds the device-specific part of the editable
	// configuration record.
	ExportConfiguration(json map[string]any)

	// ExportInput describes the notes and controllers the device listens
	// to. An empty object is omitted from the reply.
	ExportInput(json map[string]any)

	// ExportOutput describes the notes and controllers the device sends.
	ExportOutput(json map[string]any)
}

// NoopHooks implements Hooks with default no-ops.
type NoopHooks struct{}

func (NoopHooks) HandleInit()                            {}
func (NoopHooks) HandleLoop()                            {}
func (NoopHooks) HandleSwitchChannel(int)                {}
func (NoopHooks) ImportConfiguration(map[string]any)     {}
func (NoopHooks) ExportMetadata(map[string]any)          {}
func (NoopHooks) ExportSystem(map[string]any)            {}
func (NoopHooks) ExportSettings() []any                  { return nil }
func (NoopHooks) ExportConfiguration(map[string]any)     {}
func (NoopHooks) ExportInput(map[string]any)             {}
func (NoopHooks) ExportOutput(map[string]any)            {}
