package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field names a stored subscription column.
type Field string

const (
	FieldID                        Field = "id"
	FieldUserID                    Field = "user_id"
	FieldMembershipLevelID         Field = "membership_level_id"
	FieldGateway                   Field = "gateway"
	FieldGatewayEnvironment        Field = "gateway_environment"
	FieldSubscriptionTransactionID Field = "subscription_transaction_id"
	FieldStartDate                 Field = "startdate"
	FieldEndDate                   Field = "enddate"
	FieldNextPaymentDate           Field = "next_payment_date"
	FieldBillingAmount             Field = "billing_amount"
	FieldCycleNumber               Field = "cycle_number"
	FieldCyclePeriod               Field = "cycle_period"
	FieldBillingLimit              Field = "billing_limit"
	FieldTrialAmount               Field = "trial_amount"
	FieldTrialLimit                Field = "trial_limit"
	FieldStatus                    Field = "status"
)

// AllFields lists every supported field in column order.
var AllFields = []Field{
	FieldID,
	FieldUserID,
	FieldMembershipLevelID,
	FieldGateway,
	FieldGatewayEnvironment,
	FieldSubscriptionTransactionID,
	FieldStartDate,
	FieldEndDate,
	FieldNextPaymentDate,
	FieldBillingAmount,
	FieldCycleNumber,
	FieldCyclePeriod,
	FieldBillingLimit,
	FieldTrialAmount,
	FieldTrialLimit,
	FieldStatus,
}

// ParseField resolves a column name to a Field.
func ParseField(name string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Get returns the in-memory value of a field. Dates come back as *time.Time.
func (s *Subscription) Get(field Field) (any, bool) {
	switch field {
	case FieldID:
		return s.ID, true
	case FieldUserID:
		return s.UserID, true
	case FieldMembershipLevelID:
		return s.MembershipLevelID, true
	case FieldGateway:
		return s.Gateway, true
	case FieldGatewayEnvironment:
		return s.GatewayEnvironment, true
	case FieldSubscriptionTransactionID:
		return s.SubscriptionTransactionID, true
	case FieldStartDate:
		return s.StartDate, true
	case FieldEndDate:
		return s.EndDate, true
	case FieldNextPaymentDate:
		return s.NextPaymentDate, true
	case FieldBillingAmount:
		return s.BillingAmount, true
	case FieldCycleNumber:
		return s.CycleNumber, true
	case FieldCyclePeriod:
		return s.CyclePeriod, true
	case FieldBillingLimit:
		return s.BillingLimit, true
	case FieldTrialAmount:
		return s.TrialAmount, true
	case FieldTrialLimit:
		return s.TrialLimit, true
	case FieldStatus:
		return s.Status, true
	default:
		return nil, false
	}
}

// Fields returns every field keyed by column name.
func (s *Subscription) Fields() map[string]any {
	out := make(map[string]any, len(AllFields))
	for _, f := range AllFields {
		v, _ := s.Get(f)
		out[string(f)] = v
	}
	return out
}

// Set assigns one field. Integer, decimal and date fields coerce strings and
// numbers; string fields take the value as given.
func (s *Subscription) Set(field Field, value any) error {
	switch field {
	case FieldID:
		return setInt64(&s.ID, value)
	case FieldUserID:
		return setInt64(&s.UserID, value)
	case FieldMembershipLevelID:
		return setInt64(&s.MembershipLevelID, value)
	case FieldGateway:
		return setString(&s.Gateway, value)
	case FieldGatewayEnvironment:
		return setString(&s.GatewayEnvironment, value)
	case FieldSubscriptionTransactionID:
		return setString(&s.SubscriptionTransactionID, value)
	case FieldStartDate:
		return setDate(&s.StartDate, value)
	case FieldEndDate:
		return setDate(&s.EndDate, value)
	case FieldNextPaymentDate:
		return setDate(&s.NextPaymentDate, value)
	case FieldBillingAmount:
		return setDecimal(&s.BillingAmount, value)
	case FieldCycleNumber:
		return setInt(&s.CycleNumber, value)
	case FieldCyclePeriod:
		var v string
		if err := setString(&v, value); err != nil {
			return err
		}
		s.CyclePeriod = CyclePeriod(v)
		return nil
	case FieldBillingLimit:
		return setInt(&s.BillingLimit, value)
	case FieldTrialAmount:
		return setDecimal(&s.TrialAmount, value)
	case FieldTrialLimit:
		return setInt(&s.TrialLimit, value)
	case FieldStatus:
		var v string
		if err := setString(&v, value); err != nil {
			return err
		}
		s.Status = Status(v)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// SetMany assigns every pair in values. It stops at the first rejected pair.
func (s *Subscription) SetMany(values map[string]any) error {
	for name, value := range values {
		field, ok := ParseField(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		if err := s.Set(field, value); err != nil {
			return err
		}
	}
	return nil
}

// FromMap hydrates a record from a column map. Unknown keys and values that
// cannot be coerced are skipped.
func FromMap(values map[string]any) *Subscription {
	s := New()
	for name, value := range values {
		field, ok := ParseField(name)
		if !ok {
			continue
		}
		_ = s.Set(field, value)
	}
	return s
}

// FieldSource is any record able to expose its columns.
type FieldSource interface {
	Fields() map[string]any
}

// FromRecord copies the fields of another record-like value. Anything it
// cannot read yields an empty record.
func FromRecord(record any) *Subscription {
	switch r := record.(type) {
	case nil:
		return New()
	case *Subscription:
		if r == nil {
			return New()
		}
		cp := *r
		cp.initialPayment = nil
		return &cp
	case Subscription:
		r.initialPayment = nil
		return &r
	case FieldSource:
		return FromMap(r.Fields())
	case map[string]any:
		return FromMap(r)
	default:
		return New()
	}
}

func setString(dst *string, value any) error {
	switch v := value.(type) {
	case nil:
		*dst = ""
	case string:
		*dst = v
	case []byte:
		*dst = string(v)
	case fmt.Stringer:
		*dst = v.String()
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.String {
			return fmt.Errorf("%w: %T", ErrInvalidFieldValue, value)
		}
		*dst = rv.String()
	}
	return nil
}

func setInt64(dst *int64, value any) error {
	n, err := toInt64(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setInt(dst *int, value any) error {
	n, err := toInt64(value)
	if err != nil {
		return err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return fmt.Errorf("%w: %d out of range", ErrInvalidFieldValue, n)
	}
	*dst = int(n)
	return nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d out of range", ErrInvalidFieldValue, v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return toInt64(v.String())
	case decimal.Decimal:
		return v.IntPart(), nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return 0, nil
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidFieldValue, v)
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidFieldValue, value)
	}
}

func setDecimal(dst *decimal.Decimal, value any) error {
	switch v := value.(type) {
	case nil:
		*dst = decimal.Zero
	case decimal.Decimal:
		*dst = v
	case *decimal.Decimal:
		if v == nil {
			*dst = decimal.Zero
		} else {
			*dst = *v
		}
	case float64:
		*dst = decimal.NewFromFloat(v)
	case float32:
		*dst = decimal.NewFromFloat32(v)
	case json.Number:
		return setDecimal(dst, v.String())
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			*dst = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			return fmt.Errorf("%w: %q is not a decimal", ErrInvalidFieldValue, v)
		}
		*dst = d
	default:
		n, err := toInt64(value)
		if err != nil {
			return err
		}
		*dst = decimal.NewFromInt(n)
	}
	return nil
}

func setDate(dst **time.Time, value any) error {
	switch v := value.(type) {
	case nil:
		*dst = nil
	case time.Time:
		if v.IsZero() {
			*dst = nil
			return nil
		}
		t := v.UTC()
		*dst = &t
	case *time.Time:
		if v == nil || v.IsZero() {
			*dst = nil
			return nil
		}
		t := v.UTC()
		*dst = &t
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return fmt.Errorf("%w: %q is not a date", ErrInvalidFieldValue, v)
		}
		*dst = t
	case int64:
		t := time.Unix(v, 0).UTC()
		*dst = &t
	case int:
		t := time.Unix(int64(v), 0).UTC()
		*dst = &t
	default:
		return fmt.Errorf("%w: %T", ErrInvalidFieldValue, value)
	}
	return nil
}
