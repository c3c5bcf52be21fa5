package childminder

import (
	"github.com/tinkerbay/childminder/internal/core"
	"github.com/tinkerbay/childminder/internal/events"
)

// Event names accepted by Controller.On. Handlers run on the
// controller's single dispatch goroutine: no two handlers for the same
// controller run concurrently, and EventExit always precedes the
// classified EventStop/EventEnd/EventDie for the same termination.
const (
	// EventOutput carries an OutputPayload for every raw stream fragment.
	EventOutput = core.EventOutput

	// EventLineStdout / EventLineStderr carry one complete line (string)
	// per emission, newline stripped.
	EventLineStdout = core.EventLineStdout
	EventLineStderr = core.EventLineStderr

	// EventStreamLine carries each complete line from either stream,
	// prefixed with "[STDOUT] " or "[STDERR] ".
	EventStreamLine = core.EventStreamLine

	// EventExit carries a TerminationPayload for every termination.
	EventExit = core.EventExit

	// EventStop / EventEnd / EventDie classify the termination: exactly
	// one fires per termination, after EventExit.
	EventStop = core.EventStop
	EventEnd  = core.EventEnd
	EventDie  = core.EventDie
)

// Handler receives an event payload; see the Event constants for the
// payload type of each event.
type Handler = events.Handler

// Subscription identifies a registered handler for removal via Off.
type Subscription = events.Subscription

// OutputPayload is the EventOutput payload: the fragment that just
// arrived, in the field for the stream that produced it.
type OutputPayload = core.OutputPayload

// TerminationPayload is the payload of EventExit and the classified
// termination events. Code is CodeSignaled for a signal-killed process.
type TerminationPayload = core.TerminationPayload
