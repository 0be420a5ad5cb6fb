// Package ui implements the carradio terminal overlay on Bubble Tea.
//
// The model renders a radio.Overlay and never changes radio state itself:
// push messages arrive through a channel and are applied to the overlay,
// while key presses turn into gateway calls that run as commands. Call
// outcomes only feed the notice line and the diagnostics view.
package ui
