package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/ledgererr"
	"github.com/bibbank/microloan/internal/domain/valueobject"
)

// Every record starts with a two byte header: kind, then schema version.
// Fields follow in declaration order, little-endian, strings as a u32
// length prefix plus bytes, optional timestamps as a presence byte plus
// i64. New fields are only ever appended and gated on the version, and the
// buffer is zero-padded to the kind's allocated size.
const headerSize = 2

const (
	uuidSize    = 16
	u8Size      = 1
	u16Size     = 2
	u64Size     = 8
	i64Size     = 8
	optTimeSize = 1 + i64Size
	strPrefix   = 4
)

// Allocated record sizes, fixed at creation time.
const (
	ProgramStateSize = headerSize + uuidSize + u64Size*3 + u16Size + u8Size

	UserProfileSize = headerSize + uuidSize + (strPrefix + MaxNameLen) + u64Size + u8Size +
		u16Size + u8Size + u16Size + u8Size + u64Size*2 + u16Size*3 + u16Size + u8Size + i64Size*2

	LoanSize = headerSize + uuidSize + u64Size*2 + u16Size + u8Size + u64Size*5 +
		i64Size*2 + u8Size + i64Size + optTimeSize*2

	PaymentRecordSize = headerSize + uuidSize + u64Size + u8Size + u64Size*2 + i64Size +
		(strPrefix + MaxPaymentProofLen) + u8Size + u16Size + u64Size

	RiskProfileSize = headerSize + uuidSize + u16Size + u8Size + u16Size + u64Size + i64Size + u8Size
)

// Current schema versions.
const (
	programStateVersion  = 1
	userProfileVersion   = 1
	loanVersion          = 1
	paymentRecordVersion = 2
	riskProfileVersion   = 1
)

// ErrCorruptRecord is returned when stored bytes cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt ledger record")

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

type encoder struct {
	buf []byte
}

func newEncoder(kind RecordKind, version uint8) *encoder {
	e := &encoder{buf: make([]byte, 0, kind.Size())}
	e.buf = append(e.buf, byte(kind), version)
	return e
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)  { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }
func (e *encoder) id(v uuid.UUID) {
	e.buf = append(e.buf, v[:]...)
}

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) timestamp(t time.Time) { e.i64(t.Unix()) }

func (e *encoder) optTimestamp(t *time.Time) {
	if t == nil {
		e.u8(0)
		e.i64(0)
		return
	}
	e.u8(1)
	e.i64(t.Unix())
}

func (e *encoder) str(s string) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// finish pads the buffer to the allocated size.
func (e *encoder) finish(kind RecordKind) ([]byte, error) {
	size := kind.Size()
	if len(e.buf) > size {
		return nil, fmt.Errorf("encode %s: %d bytes exceeds allocated %d", kind, len(e.buf), size)
	}
	out := make([]byte, size)
	copy(out, e.buf)
	return out, nil
}

// ValidateName checks a borrower name against the record bound.
func ValidateName(name string) error {
	if len(name) > MaxNameLen {
		return ledgererr.Newf(ledgererr.KindNameTooLong, "%d bytes, max %d", len(name), MaxNameLen)
	}
	if !utf8.ValidString(name) {
		return ledgererr.Newf(ledgererr.KindInvalidStringFormat, "name is not valid UTF-8")
	}
	return nil
}

// ValidatePaymentProof checks a payment proof token against the record bound.
func ValidatePaymentProof(proof string) error {
	if len(proof) > MaxPaymentProofLen {
		return ledgererr.Newf(ledgererr.KindInvalidStringFormat, "payment proof %d bytes, max %d",
			len(proof), MaxPaymentProofLen)
	}
	return nil
}

// MarshalBinary encodes the program state.
func (p ProgramState) MarshalBinary() ([]byte, error) {
	e := newEncoder(KindProgramState, programStateVersion)
	e.id(p.Authority)
	e.u64(p.TotalUsers)
	e.u64(p.TotalLoans)
	e.u64(p.TotalVolume)
	e.u16(p.FeePercentage)
	e.boolean(p.Paused)
	return e.finish(KindProgramState)
}

// MarshalBinary encodes the user profile.
func (u UserProfile) MarshalBinary() ([]byte, error) {
	if err := ValidateName(u.FullName); err != nil {
		return nil, err
	}
	if u.EmploymentType.IsZero() || u.RiskLevel.IsZero() {
		return nil, fmt.Errorf("encode %s: unset variant field", KindUserProfile)
	}
	e := newEncoder(KindUserProfile, userProfileVersion)
	e.id(u.Authority)
	e.str(u.FullName)
	e.u64(u.MonthlyIncome)
	e.u8(u.EmploymentType.Ordinal())
	e.u16(u.TotalLoans)
	e.u8(u.ActiveLoans)
	e.u16(u.CompletedLoans)
	e.u8(u.DefaultedLoans)
	e.u64(u.TotalBorrowed)
	e.u64(u.TotalRepaid)
	e.u16(u.OnTimePayments)
	e.u16(u.LatePayments)
	e.u16(u.MissedPayments)
	e.u16(u.CreditScore)
	e.u8(u.RiskLevel.Ordinal())
	e.timestamp(u.RegisteredAt)
	e.timestamp(u.LastUpdated)
	return e.finish(KindUserProfile)
}

// MarshalBinary encodes the loan.
func (l Loan) MarshalBinary() ([]byte, error) {
	if l.Status.IsZero() {
		return nil, fmt.Errorf("encode %s: unset status", KindLoan)
	}
	e := newEncoder(KindLoan, loanVersion)
	e.id(l.Borrower)
	e.u64(l.LoanID)
	e.u64(l.PrincipalAmount)
	e.u16(l.InterestRate)
	e.u8(l.TenureMonths)
	e.u64(l.MonthlyInstallment)
	e.u64(l.TotalAmount)
	e.u64(l.OutstandingBalance)
	e.u64(l.TotalRepaid)
	e.u64(l.TotalFines)
	e.timestamp(l.StartAt)
	e.timestamp(l.EndAt)
	e.u8(l.Status.Ordinal())
	e.timestamp(l.CreatedAt)
	e.optTimestamp(l.CompletedAt)
	e.optTimestamp(l.DefaultedAt)
	return e.finish(KindLoan)
}

// MarshalBinary encodes the payment record.
func (p PaymentRecord) MarshalBinary() ([]byte, error) {
	if err := ValidatePaymentProof(p.PaymentProof); err != nil {
		return nil, err
	}
	e := newEncoder(KindPaymentRecord, paymentRecordVersion)
	e.id(p.Borrower)
	e.u64(p.LoanID)
	e.u8(p.InstallmentNumber)
	e.u64(p.Amount)
	e.u64(p.FineAmount)
	e.timestamp(p.PaidAt)
	e.str(p.PaymentProof)
	e.boolean(p.OnTime)
	e.u16(p.DaysLate)
	e.u64(p.FineWaived)
	return e.finish(KindPaymentRecord)
}

// MarshalBinary encodes the risk profile.
func (r RiskProfile) MarshalBinary() ([]byte, error) {
	if r.RiskLevel.IsZero() {
		return nil, fmt.Errorf("encode %s: unset risk level", KindRiskProfile)
	}
	e := newEncoder(KindRiskProfile, riskProfileVersion)
	e.id(r.User)
	e.u16(r.RiskScore)
	e.u8(r.RiskLevel.Ordinal())
	e.u16(r.DefaultProbability)
	e.u64(r.RecommendedMaxLoan)
	e.timestamp(r.LastCalculated)
	e.u8(r.FactorsCount)
	return e.finish(KindRiskProfile)
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

type decoder struct {
	buf     []byte
	off     int
	version uint8
	err     error
}

func newDecoder(data []byte, kind RecordKind, maxVersion uint8) *decoder {
	d := &decoder{buf: data}
	if len(data) < headerSize {
		d.err = fmt.Errorf("%w: %s shorter than header", ErrCorruptRecord, kind)
		return d
	}
	if RecordKind(data[0]) != kind {
		d.err = fmt.Errorf("%w: expected %s, found %s", ErrCorruptRecord, kind, RecordKind(data[0]))
		return d
	}
	d.version = data[1]
	if d.version == 0 || d.version > maxVersion {
		d.err = fmt.Errorf("%w: %s version %d unsupported", ErrCorruptRecord, kind, d.version)
		return d
	}
	d.off = headerSize
	return d
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("%w: truncated at offset %d", ErrCorruptRecord, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) id() uuid.UUID {
	var id uuid.UUID
	if b := d.take(uuidSize); b != nil {
		copy(id[:], b)
	}
	return id
}

func (d *decoder) boolean() bool {
	v := d.u8()
	if v > 1 && d.err == nil {
		d.err = fmt.Errorf("%w: invalid bool byte %d", ErrCorruptRecord, v)
	}
	return v == 1
}

func (d *decoder) timestamp() time.Time { return time.Unix(d.i64(), 0).UTC() }

func (d *decoder) optTimestamp() *time.Time {
	present := d.boolean()
	sec := d.i64()
	if !present || d.err != nil {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func (d *decoder) str(limit int) string {
	b := d.take(strPrefix)
	if b == nil {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > limit {
		d.err = fmt.Errorf("%w: string length %d exceeds %d", ErrCorruptRecord, n, limit)
		return ""
	}
	return string(d.take(n))
}

func (d *decoder) employment() valueobject.EmploymentType {
	v, err := valueobject.EmploymentTypeFromOrdinal(d.u8())
	d.fail(err)
	return v
}

func (d *decoder) riskLevel() valueobject.RiskLevel {
	v, err := valueobject.RiskLevelFromOrdinal(d.u8())
	d.fail(err)
	return v
}

func (d *decoder) loanStatus() valueobject.LoanStatus {
	v, err := valueobject.LoanStatusFromOrdinal(d.u8())
	d.fail(err)
	return v
}

func (d *decoder) fail(err error) {
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
}

// UnmarshalBinary decodes a program state.
func (p *ProgramState) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, KindProgramState, programStateVersion)
	out := ProgramState{
		Authority:     d.id(),
		TotalUsers:    d.u64(),
		TotalLoans:    d.u64(),
		TotalVolume:   d.u64(),
		FeePercentage: d.u16(),
		Paused:        d.boolean(),
	}
	if d.err != nil {
		return d.err
	}
	*p = out
	return nil
}

// UnmarshalBinary decodes a user profile.
func (u *UserProfile) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, KindUserProfile, userProfileVersion)
	out := UserProfile{
		Authority:      d.id(),
		FullName:       d.str(MaxNameLen),
		MonthlyIncome:  d.u64(),
		EmploymentType: d.employment(),
		TotalLoans:     d.u16(),
		ActiveLoans:    d.u8(),
		CompletedLoans: d.u16(),
		DefaultedLoans: d.u8(),
		TotalBorrowed:  d.u64(),
		TotalRepaid:    d.u64(),
		OnTimePayments: d.u16(),
		LatePayments:   d.u16(),
		MissedPayments: d.u16(),
		CreditScore:    d.u16(),
		RiskLevel:      d.riskLevel(),
		RegisteredAt:   d.timestamp(),
		LastUpdated:    d.timestamp(),
	}
	if d.err != nil {
		return d.err
	}
	*u = out
	return nil
}

// UnmarshalBinary decodes a loan.
func (l *Loan) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, KindLoan, loanVersion)
	out := Loan{
		Borrower:           d.id(),
		LoanID:             d.u64(),
		PrincipalAmount:    d.u64(),
		InterestRate:       d.u16(),
		TenureMonths:       d.u8(),
		MonthlyInstallment: d.u64(),
		TotalAmount:        d.u64(),
		OutstandingBalance: d.u64(),
		TotalRepaid:        d.u64(),
		TotalFines:         d.u64(),
		StartAt:            d.timestamp(),
		EndAt:              d.timestamp(),
		Status:             d.loanStatus(),
		CreatedAt:          d.timestamp(),
		CompletedAt:        d.optTimestamp(),
		DefaultedAt:        d.optTimestamp(),
	}
	if d.err != nil {
		return d.err
	}
	*l = out
	return nil
}

// UnmarshalBinary decodes a payment record. Version 1 records carry no
// FineWaived field and decode with it as zero.
func (p *PaymentRecord) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, KindPaymentRecord, paymentRecordVersion)
	out := PaymentRecord{
		Borrower:          d.id(),
		LoanID:            d.u64(),
		InstallmentNumber: d.u8(),
		Amount:            d.u64(),
		FineAmount:        d.u64(),
		PaidAt:            d.timestamp(),
		PaymentProof:      d.str(MaxPaymentProofLen),
		OnTime:            d.boolean(),
		DaysLate:          d.u16(),
	}
	if d.version >= 2 {
		out.FineWaived = d.u64()
	}
	if d.err != nil {
		return d.err
	}
	*p = out
	return nil
}

// UnmarshalBinary decodes a risk profile.
func (r *RiskProfile) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, KindRiskProfile, riskProfileVersion)
	out := RiskProfile{
		User:               d.id(),
		RiskScore:          d.u16(),
		RiskLevel:          d.riskLevel(),
		DefaultProbability: d.u16(),
		RecommendedMaxLoan: d.u64(),
		LastCalculated:     d.timestamp(),
		FactorsCount:       d.u8(),
	}
	if d.err != nil {
		return d.err
	}
	*r = out
	return nil
}
