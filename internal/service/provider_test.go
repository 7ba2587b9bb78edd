package service

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.prov.Register(ctx, RegisterInput{Name: "Salon", Slug: " Salon-One ", WhatsAppNumber: "0912 345 678", Password: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Slug != "salon-one" || p.WhatsAppNumber == nil || *p.WhatsAppNumber != "0912345678" || p.Phone != nil {
		t.Fatalf("unexpected provider %+v", p)
	}
	if _, err := f.prov.Register(ctx, RegisterInput{Name: "Other", Slug: "salon-one", Password: "x"}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("duplicate slug err = %v", err)
	}

	if _, err := f.prov.Authenticate(ctx, "salon-one", "s3cret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := f.prov.Authenticate(ctx, "salon-one", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := f.prov.Authenticate(ctx, "nobody", "s3cret"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown slug err = %v", err)
	}
}

func TestUpdateContactClearsWhatsApp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.prov.Register(ctx, RegisterInput{Name: "Salon", Slug: "salon", WhatsAppNumber: "0912345678", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasRichChannel() {
		t.Fatal("expected rich channel")
	}
	p, err = f.prov.UpdateContact(ctx, p.ID, "0933333333", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.HasRichChannel() || p.Phone == nil {
		t.Fatalf("unexpected provider %+v", p)
	}
	if _, err := f.prov.UpdateContact(ctx, 999, "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
