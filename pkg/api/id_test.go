package api

import "testing"

func TestNewPrincipalID(t *testing.T) {
	id := NewPrincipalID()
	if !ValidatePrincipalID(id) {
		t.Errorf("generated principal ID %q failed validation", id)
	}

	// IDs must be unique across calls.
	if NewPrincipalID() == NewPrincipalID() {
		t.Error("two generated principal IDs were identical")
	}
}

func TestNewTaskID(t *testing.T) {
	id := NewTaskID()
	if !ValidateTaskID(id) {
		t.Errorf("generated task ID %q failed validation", id)
	}
}

func TestValidatePrincipalID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "usr_abcDEF123456789012345678", true},
		{"empty", "", false},
		{"wrong prefix", "task_abcDEF123456789012345678", false},
		{"too short", "usr_abc", false},
		{"too long", "usr_abcDEF1234567890123456789", false},
		{"invalid characters", "usr_abcDEF12345678901234567!", false},
		{"no prefix", "abcDEF123456789012345678", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePrincipalID(tt.id); got != tt.want {
				t.Errorf("ValidatePrincipalID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidateTaskID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "task_abcDEF123456789012345678", true},
		{"principal prefix", "usr_abcDEF123456789012345678", false},
		{"empty", "", false},
		{"underscore in body", "task_abcDEF12345678901234_678", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateTaskID(tt.id); got != tt.want {
				t.Errorf("ValidateTaskID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
