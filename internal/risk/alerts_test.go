package risk

import (
	"reflect"
	"testing"
)

func TestDeriveAlertLevels(t *testing.T) {
	for _, tc := range []struct {
		level    RiskLevel
		wantType AlertType
		want     bool
	}{
		{level: RiskLow, want: false},
		{level: RiskMedium, want: false},
		{level: RiskHigh, wantType: AlertTypeWarning, want: true},
		{level: RiskCritical, wantType: AlertTypeCritical, want: true},
	} {
		a := Analysis{Determination: Determination{RiskLevel: tc.level, Summary: "situation summary"}}
		draft, ok := DeriveAlert(a)
		if ok != tc.want {
			t.Fatalf("%s: got ok=%v, want %v", tc.level, ok, tc.want)
		}
		if !ok {
			continue
		}
		if draft.Type != tc.wantType {
			t.Fatalf("%s: got type %q, want %q", tc.level, draft.Type, tc.wantType)
		}
		if draft.Severity != tc.level {
			t.Fatalf("%s: severity must match risk level, got %q", tc.level, draft.Severity)
		}
		if draft.Message != "situation summary" {
			t.Fatalf("%s: message must be the summary verbatim, got %q", tc.level, draft.Message)
		}
	}
}

func TestDeriveAlertIsPure(t *testing.T) {
	a := Analysis{Determination: Determination{RiskLevel: RiskHigh, Summary: "s"}}
	first, ok1 := DeriveAlert(a)
	second, ok2 := DeriveAlert(a)
	if ok1 != ok2 || !reflect.DeepEqual(first, second) {
		t.Fatalf("derive must be deterministic: %+v vs %+v", first, second)
	}
}
