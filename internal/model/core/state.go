package core

// ConnectionState is the lifecycle of the telemetry channel connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Error
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ViewMode selects between the fleet-wide map and a single-driver focus.
type ViewMode string

const (
	ViewAll    ViewMode = "all"
	ViewSingle ViewMode = "single"
)

// ViewState is the UI-owned part of the dashboard state.
type ViewState struct {
	ViewMode           ViewMode
	SelectedDriverID   string
	ShowAccuracyCircle bool
	SidebarCollapsed   bool
}

// DefaultViewState matches the dashboard's initial layout.
func DefaultViewState() ViewState {
	return ViewState{
		ViewMode:           ViewAll,
		ShowAccuracyCircle: true,
	}
}
