package tutoring

import (
	"fmt"
	"math"

	"github.com/roach88/kvledger/internal/amount"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/ir"
)

// Session is one tutoring session. Confirmed and Paid only ever flip from
// false to true, and Paid implies Confirmed.
type Session struct {
	ID              uint64
	Tutor           host.Principal
	Student         host.Principal
	Timestamp       uint64
	DurationMinutes uint32
	Confirmed       bool
	Paid            bool
}

// Status names the lifecycle state.
func (s Session) Status() string {
	switch {
	case s.Paid:
		return "paid"
	case s.Confirmed:
		return "confirmed"
	default:
		return "created"
	}
}

// Payout is duration times rate, clamped to the U128 maximum.
func (s Session) Payout(rate amount.U128) amount.U128 {
	return amount.FromUint64(uint64(s.DurationMinutes)).SaturatingMul(rate)
}

// Object returns the stored form of the session.
func (s Session) Object() ir.Object {
	return ir.Object{
		"id":               ir.Uint64(s.ID),
		"tutor":            ir.String(s.Tutor),
		"student":          ir.String(s.Student),
		"timestamp":        ir.Uint64(s.Timestamp),
		"duration_minutes": ir.Int(s.DurationMinutes),
		"confirmed":        ir.Bool(s.Confirmed),
		"paid":             ir.Bool(s.Paid),
	}
}

func sessionFromObject(obj ir.Object) (Session, error) {
	var (
		s   Session
		err error
	)
	if s.ID, err = obj.Unsigned("id"); err != nil {
		return Session{}, err
	}
	tutor, err := obj.Str("tutor")
	if err != nil {
		return Session{}, err
	}
	student, err := obj.Str("student")
	if err != nil {
		return Session{}, err
	}
	s.Tutor, s.Student = host.Principal(tutor), host.Principal(student)
	if s.Timestamp, err = obj.Unsigned("timestamp"); err != nil {
		return Session{}, err
	}
	minutes, err := obj.Integer("duration_minutes")
	if err != nil {
		return Session{}, err
	}
	if minutes < 0 || minutes > math.MaxUint32 {
		return Session{}, fmt.Errorf("field %q: %d out of range", "duration_minutes", minutes)
	}
	s.DurationMinutes = uint32(minutes)
	if s.Confirmed, err = obj.Flag("confirmed"); err != nil {
		return Session{}, err
	}
	if s.Paid, err = obj.Flag("paid"); err != nil {
		return Session{}, err
	}
	return s, nil
}

func counterObject(n uint64) ir.Object {
	return ir.Object{"count": ir.Uint64(n)}
}

func counterFromObject(obj ir.Object) (uint64, error) {
	return obj.Unsigned("count")
}

func balanceObject(identity host.Principal, bal amount.U128) ir.Object {
	return ir.Object{
		"identity": ir.String(identity),
		"amount":   ir.String(bal.String()),
	}
}

func balanceFromObject(obj ir.Object) (amount.U128, error) {
	s, err := obj.Str("amount")
	if err != nil {
		return amount.Zero, err
	}
	return amount.Parse(s)
}
