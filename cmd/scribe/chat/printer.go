package chatcmder

import (
	"fmt"
	"io"

	"github.com/papercomputeco/scribe/pkg/stream"
)

// printer renders stream notifications to the terminal and signals when a
// conversation cycle has ended.
type printer struct {
	out       io.Writer
	cycleDone chan struct{}
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:       out,
		cycleDone: make(chan struct{}, 1),
	}
}

func (p *printer) StreamStarted() {}

func (p *printer) ContentDelta(text string) {
	fmt.Fprint(p.out, text)
}

func (p *printer) ToolUseStarted(id, name string) {
	fmt.Fprintf(p.out, "\n[running %s]\n", name)
}

func (p *printer) ToolUseInputDelta(id, partialJSON string) {}

func (p *printer) ToolUseComplete(id, name string, input map[string]any) {}

func (p *printer) ToolResultReady(id, name, content string, isError bool) {
	if isError {
		fmt.Fprintf(p.out, "[%s failed: %s]\n", name, content)
	}
}

func (p *printer) MessageComplete(message stream.Message) {
	fmt.Fprintln(p.out)
}

func (p *printer) RateLimitWaiting(seconds int) {
	fmt.Fprintf(p.out, "[rate limited, retrying in %ds]\n", seconds)
}

func (p *printer) ErrorOccurred(message string) {
	fmt.Fprintf(p.out, "Error: %s\n", message)
	p.signalDone()
}

func (p *printer) CycleComplete() {
	p.signalDone()
}

func (p *printer) signalDone() {
	select {
	case p.cycleDone <- struct{}{}:
	default:
	}
}
