package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/rv32hart/core/internal/hart"
)

// SGR color codes for the register/fault dump. Defined locally rather than
// through a styling API, the same way the teacher's ccapp defines its own
// ColorScheme instead of hardcoding a third-party palette type everywhere.
const (
	colReset  = "\x1b[0m"
	colBold   = "\x1b[1m"
	colRed    = "\x1b[31m"
	colGreen  = "\x1b[32m"
	colYellow = "\x1b[33m"
	colCyan   = "\x1b[36m"
)

const registerLineWidth = 100

// RenderRegisters formats a hart's integer registers, pc, and privilege
// level as a table of four registers per row, truncated to the terminal's
// reported width so
// a narrow pane never wraps mid-row.
func RenderRegisters(snap hart.Snapshot, termWidth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%spc%s=0x%08x  %spriv%s=%s\n", colBold, colReset, snap.PC, colBold, colReset, privilegeName(snap.Priv))
	for i := 0; i < 32; i += 4 {
		line := fmt.Sprintf("%sx%-2d%s=0x%08x  %sx%-2d%s=0x%08x  %sx%-2d%s=0x%08x  %sx%-2d%s=0x%08x",
			colCyan, i, colReset, snap.X[i],
			colCyan, i+1, colReset, snap.X[i+1],
			colCyan, i+2, colReset, snap.X[i+2],
			colCyan, i+3, colReset, snap.X[i+3],
		)
		if termWidth > 0 {
			line = ansi.Truncate(line, clampWidth(termWidth), "…")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderFault formats a fault for terminal display in bold red, or a green
// "ok" when f is nil.
func RenderFault(f *hart.Fault) string {
	if f == nil {
		return colGreen + "ok" + colReset
	}
	return colRed + colBold + f.Error() + colReset
}

// RenderStatusLine formats a one-line run summary, used after each continue
// batch in the REPL.
func RenderStatusLine(cycles uint64, executed int, paused bool) string {
	state := colGreen + "running" + colReset
	if paused {
		state = colYellow + "paused" + colReset
	}
	return fmt.Sprintf("cycles=%d executed=%d state=%s", cycles, executed, state)
}

func privilegeName(p hart.Privilege) string {
	switch p {
	case hart.PrivilegeUser:
		return "U"
	case hart.PrivilegeSupervisor:
		return "S"
	case hart.PrivilegeMachine:
		return "M"
	default:
		return "?"
	}
}

func clampWidth(w int) int {
	if w < registerLineWidth {
		return w
	}
	return registerLineWidth
}
