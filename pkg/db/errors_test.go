package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"postgres message", errors.New(`duplicate key value violates unique constraint "medicines_pkey"`), true},
		{"sqlite message", errors.New("UNIQUE constraint failed: medicines.medicine_name"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range tests {
		if got := IsUniqueViolation(tc.err, ""); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsUniqueViolationWithConstraintName(t *testing.T) {
	err := errors.New(`duplicate key value violates unique constraint "medicines_name_lower_idx"`)
	if !IsUniqueViolation(err, "medicines_name_lower_idx") {
		t.Fatal("expected match on constraint name")
	}
	if IsUniqueViolation(err, "orders_pkey") {
		t.Fatal("unexpected match on different constraint")
	}
}
