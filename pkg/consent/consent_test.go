package consent

import "testing"

func names(scopes []Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, s.Name)
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name          string
		requested     string
		granted       []string
		wantToApprove []string
		wantPrevious  []string
	}{
		{
			name:          "mix of new and previously approved",
			requested:     "openid profile message.read",
			granted:       []string{"profile"},
			wantToApprove: []string{"message.read"},
			wantPrevious:  []string{"profile"},
		},
		{
			name:          "nothing granted yet",
			requested:     "openid profile email",
			granted:       nil,
			wantToApprove: []string{"profile", "email"},
			wantPrevious:  []string{},
		},
		{
			name:          "everything already granted",
			requested:     "profile email",
			granted:       []string{"profile", "email", "message.read"},
			wantToApprove: []string{},
			wantPrevious:  []string{"profile", "email"},
		},
		{
			name:          "openid alone yields empty sets",
			requested:     "openid",
			granted:       []string{"openid"},
			wantToApprove: []string{},
			wantPrevious:  []string{},
		},
		{
			name:          "duplicates collapsed",
			requested:     "profile profile email",
			granted:       nil,
			wantToApprove: []string{"profile", "email"},
			wantPrevious:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Partition(tt.requested, tt.granted)

			gotApprove := names(d.ScopesToApprove)
			gotPrevious := names(d.PreviouslyApprovedScopes)

			if len(gotApprove) != len(tt.wantToApprove) {
				t.Fatalf("scopesToApprove = %v, want %v", gotApprove, tt.wantToApprove)
			}
			for i := range tt.wantToApprove {
				if gotApprove[i] != tt.wantToApprove[i] {
					t.Errorf("scopesToApprove = %v, want %v", gotApprove, tt.wantToApprove)
				}
			}
			if len(gotPrevious) != len(tt.wantPrevious) {
				t.Fatalf("previouslyApproved = %v, want %v", gotPrevious, tt.wantPrevious)
			}
			for i := range tt.wantPrevious {
				if gotPrevious[i] != tt.wantPrevious[i] {
					t.Errorf("previouslyApproved = %v, want %v", gotPrevious, tt.wantPrevious)
				}
			}

			for _, s := range append(d.ScopesToApprove, d.PreviouslyApprovedScopes...) {
				if s.Name == ScopeOpenID {
					t.Error("openid leaked into a consent set")
				}
			}
		})
	}
}

func TestDescribeUnknownScope(t *testing.T) {
	d := Partition("custom.scope", nil)
	if len(d.ScopesToApprove) != 1 {
		t.Fatalf("unknown scope missing from scopesToApprove: %+v", d)
	}
	if d.ScopesToApprove[0].Description != unknownScopeDescription {
		t.Errorf("description = %q, want the caution text", d.ScopesToApprove[0].Description)
	}
}

func TestDescribeKnownScope(t *testing.T) {
	if Describe("profile") == unknownScopeDescription {
		t.Error("profile should have a fixed description")
	}
}
