package server

import (
	"testing"

	"skirmish/state"
)

func TestCloseCodeForViolation(t *testing.T) {
	tests := []struct {
		v    state.Violation
		want CloseCode
		num  int
	}{
		{state.InvalidMessage, CloseInvalidMessage, 4001},
		{state.NotAllowedAction, CloseNotAllowedAction, 4002},
		{state.UnknownAction, CloseUnknownAction, 4003},
	}
	for _, tt := range tests {
		got := closeCodeFor(tt.v)
		if got != tt.want || int(got) != tt.num {
			t.Errorf("%s -> %d, want %d", tt.v, int(got), tt.num)
		}
		if got.String() != tt.v.String() {
			t.Errorf("%s names differ: %s", tt.v, got)
		}
	}
	if int(CloseAlreadyExists) != 4000 {
		t.Fatalf("ALREADY_EXISTS = %d", int(CloseAlreadyExists))
	}
}
