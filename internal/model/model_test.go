package model

import "testing"

func TestStatusIsValid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.IsValid() {
			t.Errorf("status %q should be valid", s)
		}
	}

	invalid := []Status{"", "archived", "Active", "lead "}
	for _, s := range invalid {
		if s.IsValid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestAllStatusesOrdering(t *testing.T) {
	if AllStatuses[0] != StatusLead {
		t.Errorf("expected funnel to start at lead, got %s", AllStatuses[0])
	}
	if AllStatuses[len(AllStatuses)-1] != StatusCanceled {
		t.Errorf("expected funnel to end at canceled, got %s", AllStatuses[len(AllStatuses)-1])
	}
}
