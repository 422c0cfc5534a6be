package promptqueue

import "time"

// State is the queue's bookkeeping snapshot. It is always replaced whole,
// never patched in place.
type State struct {
	// QueueSize counts admitted requests that have not settled yet,
	// including the one on screen.
	QueueSize int
	// OverflowNoticeShown is set once the overflow notice has been admitted
	// for the current overflow episode.
	OverflowNoticeShown bool
	// CancelRequested is set by CancelAll. It never survives an empty queue.
	CancelRequested bool

	// pending is the record currently presented, if any.
	pending *record
}

// record is one admitted request travelling through the FIFO.
type record struct {
	future *Future
	prompt Prompt
	// overflow marks the request that was turned into the overflow notice.
	overflow bool

	admittedAt  time.Time
	presentedAt time.Time
}

// store holds the current snapshot. Callers synchronize access.
type store struct {
	state State
}

func (s *store) get() State {
	return s.state
}

// set replaces the snapshot, clearing CancelRequested whenever the queue is
// empty.
func (s *store) set(st State) {
	st.CancelRequested = st.CancelRequested && st.QueueSize > 0
	s.state = st
}

// Status is a point-in-time view of the queue for callers.
type Status struct {
	QueueSize           int  `json:"queue_size"`
	Waiting             int  `json:"waiting"`
	Presenting          bool `json:"presenting"`
	OverflowNoticeShown bool `json:"overflow_notice_shown"`
	CancelRequested     bool `json:"cancel_requested"`
	Closed              bool `json:"closed"`
}
