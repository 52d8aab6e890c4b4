package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rickgao/wsconsole/internal/connection"
)

// console is the part of the controller the command loop drives.
type console interface {
	Open()
	Close()
	Send(text string) error
	State() connection.State
}

const helpText = `commands:
  /open    connect, replacing any current connection
  /close   close the current connection
  /state   print the connection state
  /quit    exit
  //text   send "/text"
anything else is sent as one message`

// runCommands reads operator lines from in until /quit or end of input.
// Notices go to out; console log lines go through the controller's presenter.
func runCommands(ctx context.Context, in io.Reader, out io.Writer, c console) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/open":
			c.Open()
		case "/close":
			c.Close()
		case "/state":
			fmt.Fprintf(out, "state: %s\n", c.State())
		case "/quit":
			return nil
		case "/help":
			fmt.Fprintln(out, helpText)
		default:
			if strings.HasPrefix(line, "//") {
				line = line[1:]
			} else if strings.HasPrefix(line, "/") {
				fmt.Fprintf(out, "unknown command %q, try /help\n", strings.Fields(line)[0])
				continue
			}
			if err := c.Send(line); err != nil {
				if errors.Is(err, connection.ErrNotConnected) {
					fmt.Fprintf(out, "not sent: %v (state %s), use /open\n", err, c.State())
					continue
				}
				fmt.Fprintf(out, "send failed: %v\n", err)
			}
		}
	}
	return scanner.Err()
}
