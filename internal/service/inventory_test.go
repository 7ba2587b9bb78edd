package service

import (
	"context"
	"errors"
	"testing"
)

func TestGenerateSlotsIsIdempotentAndKeepsBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")

	slots, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 11)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	id := f.slotID(t, p.ID, "2025-06-02", "10:00")
	if _, err := f.inv.SetBlocked(ctx, id, p.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	slots, err = f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 12)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("got %d slots after widening, want 6", len(slots))
	}
	for _, s := range slots {
		if s.TimeLabel == "10:00" && !s.Blocked {
			t.Fatal("regeneration unblocked 10:00")
		}
		if s.TimeLabel == "10:00" && s.ID != id {
			t.Fatalf("10:00 changed id %d -> %d", id, s.ID)
		}
	}
}

func TestGenerateSlotsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name       string
		date       string
		start, end int
		want       error
	}{
		{"bad date", "2025-13-01", 9, 11, ErrInvalidDate},
		{"empty range", "2025-06-02", 11, 11, ErrInvalidRange},
		{"reversed", "2025-06-02", 12, 9, ErrInvalidRange},
		{"past midnight", "2025-06-02", 20, 25, ErrInvalidRange},
		{"negative", "2025-06-02", -1, 3, ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.inv.GenerateSlots(ctx, 1, tt.date, tt.start, tt.end); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSetBlockedOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.provider(t, "a")
	b := f.provider(t, "b")
	if _, err := f.inv.GenerateSlots(ctx, a.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	id := f.slotID(t, a.ID, "2025-06-02", "09:00")

	if _, err := f.inv.SetBlocked(ctx, id, b.ID, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign block err = %v, want ErrForbidden", err)
	}
	if _, err := f.inv.SetBlocked(ctx, 999, a.ID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing slot err = %v, want ErrNotFound", err)
	}
}

func TestBlockedSlotRejectsBookingAndUnblockRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	id := f.slotID(t, p.ID, "2025-06-02", "09:00")
	if _, err := f.inv.SetBlocked(ctx, id, p.ID, true); err != nil {
		t.Fatal(err)
	}

	in := ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "0911111111"}
	if _, err := f.res.Reserve(ctx, in); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("reserve blocked err = %v, want ErrSlotUnavailable", err)
	}

	if _, err := f.inv.SetBlocked(ctx, id, p.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.res.Reserve(ctx, in); err != nil {
		t.Fatalf("reserve after unblock: %v", err)
	}
}

func TestDeleteSlotGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	booked := f.slotID(t, p.ID, "2025-06-02", "09:00")
	free := f.slotID(t, p.ID, "2025-06-02", "09:30")

	b, err := f.res.Reserve(ctx, ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "0911111111"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.inv.DeleteSlot(ctx, booked, p.ID); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("delete booked err = %v, want ErrSlotOccupied", err)
	}
	if err := f.inv.DeleteSlot(ctx, free, p.ID); err != nil {
		t.Fatalf("delete free: %v", err)
	}

	if _, err := f.res.UpdateStatus(ctx, b.ID, p.ID, "cancelled"); err != nil {
		t.Fatal(err)
	}
	if err := f.inv.DeleteSlot(ctx, booked, p.ID); err != nil {
		t.Fatalf("delete after cancel: %v", err)
	}
	// The booking outlives its slot.
	if _, err := f.store.Bookings().GetByID(ctx, b.ID); err != nil {
		t.Fatalf("booking gone after slot delete: %v", err)
	}
	f.res.Wait()
}

// Generate 09:00-11:00, block 10:00, book 09:30: clients see 09:00 and 10:30.
func TestListAvailableDayScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 11); err != nil {
		t.Fatal(err)
	}
	if _, err := f.inv.SetBlocked(ctx, f.slotID(t, p.ID, "2025-06-02", "10:00"), p.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.res.Reserve(ctx, ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:30", ClientName: "Omar", ClientPhone: "0933 333 333"}); err != nil {
		t.Fatal(err)
	}
	f.res.Wait()

	av, err := f.inv.ListAvailable(ctx, p.ID, "2025-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if av.TotalSlots != 4 || av.BookedSlots != 1 {
		t.Fatalf("counts total=%d booked=%d, want 4/1", av.TotalSlots, av.BookedSlots)
	}
	var got []string
	for _, s := range av.Slots {
		got = append(got, s.TimeLabel)
	}
	if len(got) != 2 || got[0] != "09:00" || got[1] != "10:30" {
		t.Fatalf("available = %v, want [09:00 10:30]", got)
	}
	if av.Slots[1].FormattedTime != "10:30 AM" {
		t.Fatalf("formatted = %q", av.Slots[1].FormattedTime)
	}
}

func TestListAvailableEmptyDay(t *testing.T) {
	f := newFixture(t)
	av, err := f.inv.ListAvailable(context.Background(), 42, "2025-06-03")
	if err != nil {
		t.Fatal(err)
	}
	if av.Slots == nil || len(av.Slots) != 0 || av.TotalSlots != 0 {
		t.Fatalf("unexpected availability %+v", av)
	}
	if _, err := f.inv.ListAvailable(context.Background(), 42, "June 3"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("err = %v, want ErrInvalidDate", err)
	}
}

func TestListDayFlagsBookedSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := f.res.Reserve(ctx, ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:30", ClientName: "Omar", ClientPhone: "0933333333"}); err != nil {
		t.Fatal(err)
	}
	f.res.Wait()
	day, err := f.inv.ListDay(ctx, p.ID, "2025-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 2 || day[0].Booked || !day[1].Booked {
		t.Fatalf("unexpected day %+v", day)
	}
}
