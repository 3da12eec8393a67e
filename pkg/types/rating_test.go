package types

import (
	"encoding/json"
	"testing"
)

func TestRatingIsValid(t *testing.T) {
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		if !r.IsValid() {
			t.Errorf("%v should be valid", r)
		}
	}
	for _, r := range []Rating{0, 5, -1} {
		if r.IsValid() {
			t.Errorf("Rating(%d) should be invalid", int(r))
		}
	}
}

func TestRatingUnmarshalNumeric(t *testing.T) {
	// Graders return the numeric score form.
	var r Rating
	if err := json.Unmarshal([]byte(`3`), &r); err != nil {
		t.Fatalf("unmarshal numeric: %v", err)
	}
	if r != Good {
		t.Errorf("got %v, want good", r)
	}
	if err := json.Unmarshal([]byte(`5`), &r); err == nil {
		t.Error("score 5 should be rejected")
	}
}

func TestRatingUnmarshalString(t *testing.T) {
	var r Rating
	if err := json.Unmarshal([]byte(`"again"`), &r); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if r != Again {
		t.Errorf("got %v, want again", r)
	}
	if err := json.Unmarshal([]byte(`"meh"`), &r); err == nil {
		t.Error("unknown name should be rejected")
	}
}

func TestStateRoundTrip(t *testing.T) {
	for _, s := range []State{StateNew, StateLearning, StateReview, StateRelearning} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var back State
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != s {
			t.Errorf("round trip %v → %v", s, back)
		}
	}
	var s State
	if err := json.Unmarshal([]byte(`"suspended"`), &s); err == nil {
		t.Error("unknown state should be rejected")
	}
}
