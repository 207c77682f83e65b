package cmd

import (
	"github.com/fatih/color"

	"github.com/khanhnv2901/gh-recon/internal/verifier"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorAlert   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func formatKindWithColor(r verifier.Result) string {
	status := r.Status()
	switch r.Kind {
	case verifier.KindExists, verifier.KindLive:
		return colorSuccess(status)
	case verifier.KindPotentiallyHijackable:
		return colorAlert(status)
	case verifier.KindDead, verifier.KindError, verifier.KindRequestFailed:
		return colorWarn(status)
	default:
		return status
	}
}
