package workerpool

// Task is one admitted image awaiting or undergoing recognition
// (spec.md §3). It is created when a session accepts a request and
// destroyed once Done has been called.
type Task struct {
	ImageID  string
	Filename string
	Payload  []byte

	// Done is called by the worker that processes this task, exactly
	// once, with the recognized text, success flag, and error message
	// (empty unless !Success). The callback is responsible for writing
	// the result through the session's response serializer and for
	// releasing Payload's bytes back to the memory governor — the pool
	// itself has no knowledge of the governor or the session.
	Done func(extractedText string, success bool, errMessage string)
}
