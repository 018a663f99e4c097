package token

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewIsExhaustive(t *testing.T) {
	now := time.Now()
	userID := uuid.New()

	for _, k := range []Kind{KindSignup, KindReset, KindRemember} {
		tok, err := New(k, userID, now, Options{TTL: time.Hour, CodeLength: 6})
		if err != nil {
			t.Fatalf("New(%s) error: %v", k, err)
		}
		if tok.Kind() != k {
			t.Fatalf("expected kind %s, got %s", k, tok.Kind())
		}
		m := tok.Base()
		if m.UserID != userID || m.Value == "" || m.ID == uuid.Nil {
			t.Fatalf("incomplete meta for %s: %+v", k, m)
		}
		if !m.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("unexpected expiry for %s", k)
		}
	}

	if _, err := New(Kind("magic"), userID, now, Options{TTL: time.Hour}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := New(KindSignup, userID, now, Options{}); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}

func TestOnlyResetCarriesCode(t *testing.T) {
	now := time.Now()
	tok, err := New(KindReset, uuid.New(), now, Options{TTL: time.Hour, CodeLength: 6})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	reset, ok := tok.(Reset)
	if !ok {
		t.Fatalf("expected Reset, got %T", tok)
	}
	if len(reset.Code) != 6 {
		t.Fatalf("expected 6-char code, got %q", reset.Code)
	}

	rec := Encode(tok)
	if rec.Code == nil || *rec.Code != reset.Code {
		t.Fatal("reset record must carry the code")
	}

	signup, err := New(KindSignup, uuid.New(), now, Options{TTL: time.Hour})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if Encode(signup).Code != nil {
		t.Fatal("signup record must not carry a code")
	}
}

func TestEncodeDecodeRoundTripKeepsUnion(t *testing.T) {
	now := time.Now()
	tok, err := New(KindReset, uuid.New(), now, Options{TTL: time.Hour, CodeLength: 6})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	rec := Encode(tok)
	if rec.ValueHash != HashValue(tok.Base().Value) {
		t.Fatal("record must be keyed by the value hash")
	}
	rec.FailedAttempts = 2

	back, err := Decode(rec, tok.Base().Value)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	reset, ok := back.(Reset)
	if !ok {
		t.Fatalf("expected Reset, got %T", back)
	}
	if reset.FailedAttempts != 2 || reset.AttemptsLeft(3) != 1 {
		t.Fatalf("unexpected attempts: %+v", reset)
	}
}

func TestDecodeRejectsMalformedRecords(t *testing.T) {
	code := "ABC123"
	cases := []Record{
		{Kind: KindSignup, Code: &code},
		{Kind: KindRemember, Code: &code},
		{Kind: KindReset},
		{Kind: Kind("other")},
	}
	for _, rec := range cases {
		if _, err := Decode(rec, "v"); err == nil {
			t.Fatalf("expected error decoding %+v", rec)
		}
	}
}

func TestActiveIsComparisonOnly(t *testing.T) {
	now := time.Now()
	m := Meta{ExpiresAt: now.Add(time.Minute)}
	if !m.Active(now) {
		t.Fatal("expected active before expiry")
	}
	if m.Active(now.Add(time.Minute)) {
		t.Fatal("expected inactive at expiry")
	}
	if !m.Expired(now.Add(time.Minute)) {
		t.Fatal("expected expired at expiry")
	}
	m.Used = true
	if m.Active(now) {
		t.Fatal("used token must not be active")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("reset"); err != nil || k != KindReset {
		t.Fatalf("ParseKind(reset) = %v, %v", k, err)
	}
	if _, err := ParseKind("remember-me"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
