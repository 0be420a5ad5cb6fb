// Package shell is a line-oriented alternative to the TUI for driving the
// radio overlay from a plain terminal or over ssh.
package shell
