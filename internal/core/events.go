package core

// Event names dispatched through the controller's registry. All handlers
// run on the controller's loop goroutine, so no two handlers for the same
// controller run concurrently, and EventExit always precedes the
// classified EventStop/EventEnd/EventDie for the same termination.
const (
	// EventOutput carries an OutputPayload for every raw stream fragment.
	EventOutput = "output"

	// EventLineStdout / EventLineStderr carry one complete line (string)
	// per emission, newline stripped.
	EventLineStdout = "line-stdout"
	EventLineStderr = "line-stderr"

	// EventStreamLine carries each complete line from either stream as a
	// string prefixed with "[STDOUT] " or "[STDERR] ".
	EventStreamLine = "stream-line"

	// EventExit carries a TerminationPayload for every termination,
	// before classification.
	EventExit = "exit"

	// EventStop / EventEnd / EventDie carry the same TerminationPayload;
	// exactly one fires per termination. Stop when the termination was
	// requested via Stop, End for an unrequested clean exit, Die for an
	// unrequested failure or signal kill.
	EventStop = "stop"
	EventEnd  = "end"
	EventDie  = "die"
)

// OutputPayload is the EventOutput payload: the fragment that just
// arrived, in the field for the stream that produced it. The other field
// is empty.
type OutputPayload struct {
	Stdout []byte
	Stderr []byte
}

// TerminationPayload is the payload of EventExit and the classified
// termination events. Code is CodeSignaled when the process was killed by
// a signal, in which case Signal names it.
type TerminationPayload struct {
	Code   int
	Signal string
}
