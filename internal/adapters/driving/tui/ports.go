// Package tui is the interactive terminal front end: a menu, the chat
// screen, the chat list, uploads and settings.
package tui

import (
	"errors"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	ErrInvalidPorts          = errors.New("tui: no ports given")
	ErrMissingSessionManager = errors.New("tui: session manager is required")
)

// Ports aggregates the driving ports the TUI works with.
type Ports struct {
	Sessions driving.SessionManager

	// Settings shows and edits application settings. Optional.
	Settings driving.SettingsService
}

func NewPorts(sessions driving.SessionManager, settings driving.SettingsService) *Ports {
	return &Ports{
		Sessions: sessions,
		Settings: settings,
	}
}

// Validate reports the first missing required port.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Sessions == nil {
		return ErrMissingSessionManager
	}
	return nil
}
