package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/queue"
)

func TestReserveConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.res.Reserve(ctx, ReserveInput{
				ProviderID:  p.ID,
				Date:        "2025-06-02",
				TimeLabel:   "09:00",
				ClientName:  fmt.Sprintf("client-%d", i),
				ClientPhone: "0911111111",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	f.res.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("wins=%d conflicts=%d, want 1/%d", wins, conflicts, n-1)
	}
	if got := f.jobs.kinds(); len(got) != 1 || got[0] != queue.KindBookingConfirmation {
		t.Fatalf("queued jobs = %v, want one confirmation", got)
	}
}

func TestReserveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	ok := ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "+963 911 111 111"}

	tests := []struct {
		name string
		edit func(*ReserveInput)
		want error
	}{
		{"blank name", func(in *ReserveInput) { in.ClientName = "   " }, ErrInvalidInput},
		{"bad label", func(in *ReserveInput) { in.TimeLabel = "9am" }, ErrInvalidInput},
		{"bad phone", func(in *ReserveInput) { in.ClientPhone = "12345" }, ErrInvalidPhone},
		{"bad date", func(in *ReserveInput) { in.Date = "2025-02-30" }, ErrInvalidDate},
		{"unknown provider", func(in *ReserveInput) { in.ProviderID = 999 }, ErrNotFound},
		{"no such slot", func(in *ReserveInput) { in.TimeLabel = "15:00" }, ErrSlotUnavailable},
		{"other day", func(in *ReserveInput) { in.Date = "2025-06-03" }, ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.edit(&in)
			if _, err := f.res.Reserve(ctx, in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	b, err := f.res.Reserve(ctx, ok)
	if err != nil {
		t.Fatal(err)
	}
	f.res.Wait()
	if b.ClientPhone != "+963911111111" {
		t.Fatalf("phone stored as %q", b.ClientPhone)
	}
	if b.Status != model.StatusConfirmed || b.NotificationStatus != model.NotificationPending {
		t.Fatalf("new booking status=%s notification=%s", b.Status, b.NotificationStatus)
	}
}

func TestReserveSucceedsWhenQueueFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.jobs.err = errors.New("broker down")
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	b, err := f.res.Reserve(ctx, ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "0911111111"})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	f.res.Wait()
	stored, err := f.store.Bookings().GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.NotificationStatus != model.NotificationPending {
		t.Fatalf("notification status = %s, want pending", stored.NotificationStatus)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	in := ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "0911111111"}
	first, err := f.res.Reserve(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.res.Reserve(ctx, in); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("second reserve err = %v, want ErrSlotConflict", err)
	}
	if _, err := f.res.UpdateStatus(ctx, first.ID, p.ID, model.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	second, err := f.res.Reserve(ctx, in)
	if err != nil {
		t.Fatalf("reserve after cancel: %v", err)
	}
	f.res.Wait()
	if second.ID == first.ID {
		t.Fatal("expected a new booking row")
	}
	// Hand-offs run on their own goroutines, so only the mix is fixed.
	want := []string{queue.KindBookingCancellation, queue.KindBookingConfirmation, queue.KindBookingConfirmation}
	got := f.jobs.kinds()
	sort.Strings(got)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("jobs = %v, want %v", got, want)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []string
		final string
		ok    bool
	}{
		{"confirm to complete", nil, model.StatusCompleted, true},
		{"confirm to cancel", nil, model.StatusCancelled, true},
		{"confirm to confirm", nil, model.StatusConfirmed, false},
		{"confirm to pending", nil, model.StatusPending, false},
		{"complete then cancel", []string{model.StatusCompleted}, model.StatusCancelled, false},
		{"cancel then confirm", []string{model.StatusCancelled}, model.StatusConfirmed, false},
		{"cancel then complete", []string{model.StatusCancelled}, model.StatusCompleted, false},
		{"unknown status", nil, "archived", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			p := f.provider(t, "clinic")
			if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 10); err != nil {
				t.Fatal(err)
			}
			b, err := f.res.Reserve(ctx, ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "0911111111"})
			if err != nil {
				t.Fatal(err)
			}
			for _, s := range tt.path {
				if _, err := f.res.UpdateStatus(ctx, b.ID, p.ID, s); err != nil {
					t.Fatalf("setup %s: %v", s, err)
				}
			}
			got, err := f.res.UpdateStatus(ctx, b.ID, p.ID, tt.final)
			f.res.Wait()
			if tt.ok {
				if err != nil || got.Status != tt.final {
					t.Fatalf("got %s, %v", got.Status, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("err = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestUpdateStatusOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.provider(t, "a")
	b := f.provider(t, "b")
	if _, err := f.inv.GenerateSlots(ctx, a.ID, "2025-06-02", 9, 10); err != nil {
		t.Fatal(err)
	}
	bk, err := f.res.Reserve(ctx, ReserveInput{ProviderID: a.ID, Date: "2025-06-02", TimeLabel: "09:00", ClientName: "Lina", ClientPhone: "0911111111"})
	if err != nil {
		t.Fatal(err)
	}
	f.res.Wait()
	if _, err := f.res.UpdateStatus(ctx, bk.ID, b.ID, model.StatusCancelled); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := f.res.UpdateStatus(ctx, 999, a.ID, model.StatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.provider(t, "clinic")
	out, err := f.res.ListBookings(ctx, p.ID, "2025-06-02")
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("empty day = %v, %v", out, err)
	}
	if _, err := f.inv.GenerateSlots(ctx, p.ID, "2025-06-02", 9, 11); err != nil {
		t.Fatal(err)
	}
	for _, l := range []string{"10:00", "09:00"} {
		if _, err := f.res.Reserve(ctx, ReserveInput{ProviderID: p.ID, Date: "2025-06-02", TimeLabel: l, ClientName: "C", ClientPhone: "0911111111"}); err != nil {
			t.Fatal(err)
		}
	}
	f.res.Wait()
	out, err = f.res.ListBookings(ctx, p.ID, "2025-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].TimeLabel != "09:00" {
		t.Fatalf("bookings = %+v", out)
	}
}
