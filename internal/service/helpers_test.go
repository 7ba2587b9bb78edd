package service

import (
	"context"
	"sync"
	"testing"

	"github.com/iliyamo/clinic-booking/internal/model"
	"github.com/iliyamo/clinic-booking/internal/queue"
	"github.com/iliyamo/clinic-booking/internal/repository/memstore"
	"github.com/iliyamo/clinic-booking/internal/utils"
)

// recordingQueue collects jobs instead of delivering them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.NotificationJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job queue.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) kinds() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Kind)
	}
	return out
}

type fixture struct {
	store *memstore.Store
	inv   *InventoryService
	res   *ReservationService
	prov  *ProviderService
	jobs  *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	phones, err := utils.NewPhoneValidator("")
	if err != nil {
		t.Fatalf("phone validator: %v", err)
	}
	jobs := &recordingQueue{}
	f := &fixture{
		store: st,
		inv:   NewInventoryService(st.Slots(), st.Bookings(), nil),
		res:   NewReservationService(st.Providers(), st.Bookings(), jobs, phones, nil),
		prov:  NewProviderService(st.Providers(), 4),
		jobs:  jobs,
	}
	return f
}

func (f *fixture) provider(t *testing.T, slug string) model.Provider {
	t.Helper()
	p, err := f.prov.Register(context.Background(), RegisterInput{Name: "Dr " + slug, Slug: slug, Password: "pw"})
	if err != nil {
		t.Fatalf("register %s: %v", slug, err)
	}
	return p
}

func (f *fixture) slotID(t *testing.T, providerID uint64, date, label string) uint64 {
	t.Helper()
	slots, err := f.store.Slots().ListByDate(context.Background(), providerID, date)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range slots {
		if s.TimeLabel == label {
			return s.ID
		}
	}
	t.Fatalf("slot %s %s not found", date, label)
	return 0
}
