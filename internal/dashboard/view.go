package dashboard

import "github.com/chemvis/dashboard/internal/render"

// Screen is the top level panel on display.
type Screen string

const (
	ScreenLogin Screen = "login"
	ScreenMain  Screen = "main"
)

// Drop zone labels.
const (
	LabelIdle            = "Drop CSV or click to browse"
	LabelUploading       = "Uploading..."
	LabelSuccess         = "Success!"
	LabelError           = "Error! Try again."
	LabelConnectionError = "Connection error"
)

// Login banner messages.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgConnectionFailed   = "Backend connection failed"
	MsgSessionExpired     = "Session expired, please log in again"
)

// ViewModel is the complete presentation state of a dashboard. Slices and
// the dashboard view are replaced wholesale, never edited in place, so a
// copy of the struct is a consistent snapshot.
type ViewModel struct {
	Screen     Screen                `json:"screen"`
	Username   string                `json:"username,omitempty"`
	LoginError string                `json:"loginError,omitempty"`
	History    []render.HistoryRow   `json:"history"`
	DropLabel  string                `json:"dropLabel"`
	Dashboard  *render.DashboardView `json:"dashboard,omitempty"`
	ChartID    string                `json:"chartId,omitempty"`
	// Seq increases with every published change.
	Seq        uint64                `json:"seq"`
}

func initialView() ViewModel {
	return ViewModel{
		Screen:    ScreenLogin,
		History:   []render.HistoryRow{},
		DropLabel: LabelIdle,
	}
}

// Observer receives a snapshot after every view change.
type Observer interface {
	ViewChanged(view ViewModel)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(view ViewModel)

func (f ObserverFunc) ViewChanged(view ViewModel) { f(view) }

type nopObserver struct{}

func (nopObserver) ViewChanged(ViewModel) {}
