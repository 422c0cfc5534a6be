package promptqueue

import "testing"

func TestStore_CancelFlagNeverOnEmptyQueue(t *testing.T) {
	tests := []struct {
		name string
		in   State
		want bool
	}{
		{name: "empty queue clears flag", in: State{CancelRequested: true}, want: false},
		{name: "non-empty queue keeps flag", in: State{QueueSize: 2, CancelRequested: true}, want: true},
		{name: "flag unset stays unset", in: State{QueueSize: 3}, want: false},
		{name: "negative size clears flag", in: State{QueueSize: -1, CancelRequested: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s store
			s.set(tt.in)
			if got := s.get().CancelRequested; got != tt.want {
				t.Errorf("CancelRequested = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_PreservesOtherFields(t *testing.T) {
	var s store
	rec := &record{}
	s.set(State{QueueSize: 1, OverflowNoticeShown: true, pending: rec})

	st := s.get()
	if st.QueueSize != 1 || !st.OverflowNoticeShown || st.pending != rec {
		t.Errorf("get() = %+v, want fields preserved", st)
	}
}
