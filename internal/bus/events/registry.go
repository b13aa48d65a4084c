package events

// Well-known event names. Names follow the "<domain>:<action>" convention;
// new domains can add their own constants without touching this file.
const (
	AppReady      = "app:ready"
	AppBeforeQuit = "app:before-quit"

	SettingsChanged = "settings:changed"

	ThemeChanged = "theme:changed"

	WindowMinimized = "window:minimized"
	WindowMaximized = "window:maximized"
	WindowRestored  = "window:restored"
	WindowFocused   = "window:focused"
	WindowBlurred   = "window:blurred"
	WindowClosed    = "window:closed"

	LogEntry = "log:entry"

	BridgeConnected    = "bridge:connected"
	BridgeDisconnected = "bridge:disconnected"
)

// SettingsChangedPayload describes a single settings key transition.
type SettingsChangedPayload struct {
	Key           string `json:"key"`
	Value         any    `json:"value"`
	PreviousValue any    `json:"previousValue,omitempty"`
}

// ThemeChangedPayload carries the active theme name.
type ThemeChangedPayload struct {
	Theme string `json:"theme"`
}

// WindowStatePayload identifies the window a window:* event refers to.
type WindowStatePayload struct {
	WindowID string `json:"windowId"`
}

// LogEntryPayload mirrors one structured log line surfaced over the bus.
type LogEntryPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Scope   string `json:"scope,omitempty"`
}

// BridgeStatePayload reports which bridge backend a side is attached to.
type BridgeStatePayload struct {
	Side    Source `json:"side"`
	Backend string `json:"backend"`
}
