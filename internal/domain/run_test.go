package domain

import "testing"

func TestRunStatus_Terminal(t *testing.T) {
	cases := []struct {
		status RunStatus
		want   bool
	}{
		{RunRunning, false},
		{RunSucceeded, true},
		{RunFailed, true},
		{RunTimedOut, true},
		{RunAborted, true},
	}

	for _, c := range cases {
		if got := c.status.Terminal(); got != c.want {
			t.Errorf("Terminal(%s) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestRun_FailedIDs(t *testing.T) {
	run := &Run{Handle: "r1"}
	if ids := run.FailedIDs(); ids != nil {
		t.Errorf("FailedIDs without output = %v, want nil", ids)
	}

	run.Output = &RunOutput{FailedIDs: []string{"a", "b"}}
	ids := run.FailedIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("FailedIDs = %v, want [a b]", ids)
	}
}
