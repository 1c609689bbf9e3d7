package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/rv32hart/core/internal/hart"
)

// RunREPL drives an interactive single-hart session: s steps one
// instruction, c runs a batch of 1000 and stops on the next breakpoint,
// r redraws the register dump, q quits. Raw mode is entered only when
// stdin is actually a terminal, mirroring the teacher's isTerminal-gated
// raw-mode handling in cmd/agents/main.go.
func RunREPL(h *hart.Hart, out io.Writer) error {
	fd := int(os.Stdin.Fd())
	isTerminal := term.IsTerminal(fd)

	var oldState *term.State
	if isTerminal {
		var err error
		oldState, err = term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enable raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	width, _, err := term.GetSize(fd)
	if err != nil {
		width = 0
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Fprintf(out, "hartctl REPL: s=step c=continue r=redraw q=quit\r\n")

	for {
		snap := h.Snapshot()
		fmt.Fprint(out, RenderRegisters(snap, width))
		fmt.Fprint(out, "\r\n> ")

		b, err := reader.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read keystroke: %w", err)
		}

		switch b {
		case 's', '\r', '\n':
			_, hitBreak, f := h.Step(1)
			if f != nil {
				fmt.Fprintf(out, "\r\n%s\r\n", RenderFault(f))
				return nil
			}
			if hitBreak {
				fmt.Fprintf(out, "\r\nbreakpoint hit at pc=0x%08x\r\n", h.PC)
			}
		case 'c':
			executed, hitBreak, f := h.Step(1000)
			fmt.Fprintf(out, "\r\n%s\r\n", RenderStatusLine(h.Cycles, executed, hitBreak))
			if f != nil {
				fmt.Fprintf(out, "%s\r\n", RenderFault(f))
				return nil
			}
		case 'r':
			// redraw happens unconditionally at the top of the loop
		case 'q':
			fmt.Fprintf(out, "\r\n")
			return nil
		default:
			fmt.Fprintf(out, "\r\nunrecognized key %q\r\n", b)
		}
	}
}
