package recognition

import "fmt"

// State is one of Idle, Listening, Completed or Errored.
type State interface {
	fmt.Stringer
	isState()
}

type Idle struct{}

type Listening struct {
	Session uint64
}

type Completed struct {
	Transcript string
}

type Errored struct {
	Reason error
}

func (Idle) isState()      {}
func (Listening) isState() {}
func (Completed) isState() {}
func (Errored) isState()   {}

func (Idle) String() string      { return "idle" }
func (Listening) String() string { return "listening" }
func (Completed) String() string { return "completed" }
func (Errored) String() string   { return "errored" }
