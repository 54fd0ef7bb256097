package model

import "testing"

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		first  bool
		second bool
		want   string
	}{
		{false, false, PaymentPending},
		{true, false, PaymentPartiallyPaid},
		{false, true, PaymentPartiallyPaid},
		{true, true, PaymentTotalPaid},
	}
	for _, tt := range cases {
		if got := PaymentStatusFor(tt.first, tt.second); got != tt.want {
			t.Fatalf("PaymentStatusFor(%v, %v)=%q, want %q", tt.first, tt.second, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleUser, RoleEmployee, RoleManager, RolePropertyManager, RoleSuperAdmin} {
		if !ValidRole(r) {
			t.Fatalf("ValidRole(%q)=false, want true", r)
		}
	}
	for _, r := range []string{"", "admin", "USER", "owner", "guest"} {
		if ValidRole(r) {
			t.Fatalf("ValidRole(%q)=true, want false", r)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusInProgress, StatusCompleted} {
		if !ValidStatus(s) {
			t.Fatalf("ValidStatus(%q)=false, want true", s)
		}
	}
	if ValidStatus("cancelled") {
		t.Fatal("ValidStatus(\"cancelled\")=true, want false")
	}
}
