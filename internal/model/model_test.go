package model

import (
	"testing"
	"time"
)

func TestRecurrenceMatches(t *testing.T) {
	tue := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)
	wed := tue.AddDate(0, 0, 1)

	weekly := WeeklyOn(time.Tuesday)
	if !weekly.Matches(tue) {
		t.Fatalf("weekly rule should match its weekday")
	}
	if weekly.Matches(wed) {
		t.Fatalf("weekly rule matched the wrong weekday")
	}

	once := OnDate(tue)
	if !once.Matches(tue) {
		t.Fatalf("specific-date rule should match its date")
	}
	if once.Matches(tue.AddDate(0, 0, 7)) {
		t.Fatalf("specific-date rule matched a different date")
	}
}

func TestCouponWithinWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)
	c := DiscountCoupon{ValidFrom: from, ValidUntil: &until}

	if c.WithinWindow(from.Add(-time.Second)) {
		t.Fatalf("coupon valid before its window")
	}
	if !c.WithinWindow(from) {
		t.Fatalf("coupon invalid at window start")
	}
	if c.WithinWindow(until.Add(time.Second)) {
		t.Fatalf("coupon valid after its window")
	}

	open := DiscountCoupon{ValidFrom: from}
	if !open.WithinWindow(until.AddDate(10, 0, 0)) {
		t.Fatalf("open-ended coupon should stay valid")
	}
}

func TestCouponUsesRemaining(t *testing.T) {
	max := 2
	c := DiscountCoupon{MaxUses: &max, CurrentUses: 1}
	if !c.UsesRemaining() {
		t.Fatalf("one use left, should have remaining")
	}
	c.CurrentUses = 2
	if c.UsesRemaining() {
		t.Fatalf("cap reached, should have none remaining")
	}
	uncapped := DiscountCoupon{CurrentUses: 1000000}
	if !uncapped.UsesRemaining() {
		t.Fatalf("uncapped coupon should always have remaining")
	}
}

func TestSlotAvailable(t *testing.T) {
	s := GeneratedSlot{MaxCapacity: 8, ConfirmedBookings: 6}
	if got := s.Available(); got != 2 {
		t.Fatalf("Available = %d, want 2", got)
	}
	s.ConfirmedBookings = 8
	if got := s.Available(); got != 0 {
		t.Fatalf("Available = %d, want 0", got)
	}
}

func TestSessionCodeExpired(t *testing.T) {
	exp := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	sc := SessionCode{ExpiresAt: exp}
	if sc.Expired(exp.Add(-time.Second)) {
		t.Fatalf("code expired too early")
	}
	if !sc.Expired(exp) {
		t.Fatalf("code should expire exactly at its deadline")
	}
}
