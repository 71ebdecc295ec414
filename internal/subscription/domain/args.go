package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultOrderBy   = "startdate DESC"
	DefaultListLimit = 100
)

var orderByPattern = regexp.MustCompile("^[A-Za-z0-9\\s,`]+$")

// ValidOrderBy reports whether an ordering clause only uses letters, digits,
// whitespace, commas and backticks.
func ValidOrderBy(orderBy string) bool {
	return orderByPattern.MatchString(orderBy)
}

// ListArgs filters a subscription listing. A nil slice imposes no filter, one
// element compares with "=", several use "IN". A non-nil empty slice matches
// nothing.
type ListArgs struct {
	ID                        []int64
	UserID                    []int64
	MembershipLevelID         []int64
	Gateway                   []string
	GatewayEnvironment        []string
	SubscriptionTransactionID []string
	Status                    []Status
	BillingAmount             []decimal.Decimal
	CycleNumber               []int
	CyclePeriod               []CyclePeriod
	BillingLimit              []int
	TrialAmount               []decimal.Decimal
	TrialLimit                []int

	// OrderBy defaults to DefaultOrderBy when empty.
	OrderBy string
	// Limit defaults to DefaultListLimit when nil; 0 disables the limit.
	Limit *int
}

// Filter is one bound column condition.
type Filter struct {
	Column Field
	Values []any
}

// Filters returns the active column conditions in column order.
func (a ListArgs) Filters() []Filter {
	var out []Filter
	add := func(column Field, set bool, values []any) {
		if set {
			out = append(out, Filter{Column: column, Values: values})
		}
	}
	add(FieldID, a.ID != nil, anySlice(a.ID))
	add(FieldUserID, a.UserID != nil, anySlice(a.UserID))
	add(FieldMembershipLevelID, a.MembershipLevelID != nil, anySlice(a.MembershipLevelID))
	add(FieldGateway, a.Gateway != nil, anySlice(a.Gateway))
	add(FieldGatewayEnvironment, a.GatewayEnvironment != nil, anySlice(a.GatewayEnvironment))
	add(FieldSubscriptionTransactionID, a.SubscriptionTransactionID != nil, anySlice(a.SubscriptionTransactionID))
	add(FieldStatus, a.Status != nil, stringSlice(a.Status))
	add(FieldBillingAmount, a.BillingAmount != nil, decimalSlice(a.BillingAmount))
	add(FieldCycleNumber, a.CycleNumber != nil, anySlice(a.CycleNumber))
	add(FieldCyclePeriod, a.CyclePeriod != nil, stringSlice(a.CyclePeriod))
	add(FieldBillingLimit, a.BillingLimit != nil, anySlice(a.BillingLimit))
	add(FieldTrialAmount, a.TrialAmount != nil, decimalSlice(a.TrialAmount))
	add(FieldTrialLimit, a.TrialLimit != nil, anySlice(a.TrialLimit))
	return out
}

// IsEmpty reports whether no filter is set. A lone zero id counts as empty.
func (a ListArgs) IsEmpty() bool {
	filters := a.Filters()
	if len(filters) == 0 {
		return true
	}
	return len(filters) == 1 && len(a.ID) == 1 && a.ID[0] == 0
}

// ResolvedOrderBy returns the ordering clause to apply.
func (a ListArgs) ResolvedOrderBy() string {
	if strings.TrimSpace(a.OrderBy) == "" {
		return DefaultOrderBy
	}
	return a.OrderBy
}

// ResolvedLimit returns the row limit; 0 means unlimited.
func (a ListArgs) ResolvedLimit() int {
	if a.Limit == nil {
		return DefaultListLimit
	}
	if *a.Limit < 0 {
		return 0
	}
	return *a.Limit
}

// WithLimit returns a copy of a limited to n rows.
func (a ListArgs) WithLimit(n int) ListArgs {
	a.Limit = &n
	return a
}

// ParseListArgs builds ListArgs from query-string style values. Unknown keys
// are rejected.
func ParseListArgs(values map[string][]string) (ListArgs, error) {
	var args ListArgs
	for key, raw := range values {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "orderby":
			if len(raw) > 0 {
				args.OrderBy = raw[len(raw)-1]
			}
			continue
		case "limit":
			if len(raw) == 0 {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(raw[len(raw)-1]))
			if err != nil {
				return ListArgs{}, fmt.Errorf("%w: limit", ErrInvalidFieldValue)
			}
			args.Limit = &n
			continue
		}

		field, ok := ParseField(key)
		if !ok {
			return ListArgs{}, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
		raw = splitValues(raw)

		var err error
		switch field {
		case FieldID:
			args.ID, err = parseInts[int64](raw)
		case FieldUserID:
			args.UserID, err = parseInts[int64](raw)
		case FieldMembershipLevelID:
			args.MembershipLevelID, err = parseInts[int64](raw)
		case FieldGateway:
			args.Gateway = raw
		case FieldGatewayEnvironment:
			args.GatewayEnvironment = raw
		case FieldSubscriptionTransactionID:
			args.SubscriptionTransactionID = raw
		case FieldStatus:
			args.Status = convertStrings[Status](raw)
		case FieldBillingAmount:
			args.BillingAmount, err = parseDecimals(raw)
		case FieldCycleNumber:
			args.CycleNumber, err = parseInts[int](raw)
		case FieldCyclePeriod:
			args.CyclePeriod = convertStrings[CyclePeriod](raw)
		case FieldBillingLimit:
			args.BillingLimit, err = parseInts[int](raw)
		case FieldTrialAmount:
			args.TrialAmount, err = parseDecimals(raw)
		case FieldTrialLimit:
			args.TrialLimit, err = parseInts[int](raw)
		default:
			return ListArgs{}, fmt.Errorf("%w: %q is not filterable", ErrUnknownField, key)
		}
		if err != nil {
			return ListArgs{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return args, nil
}

// splitValues expands comma-separated entries, keeping a lone empty value.
func splitValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if !strings.Contains(v, ",") {
			out = append(out, strings.TrimSpace(v))
			continue
		}
		for _, part := range strings.Split(v, ",") {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}

func parseInts[T int | int64](raw []string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, ErrInvalidFieldValue
		}
		out = append(out, T(n))
	}
	return out, nil
}

func parseDecimals(raw []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(raw))
	for _, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, ErrInvalidFieldValue
		}
		out = append(out, d)
	}
	return out, nil
}

func convertStrings[T ~string](raw []string) []T {
	out := make([]T, len(raw))
	for i, v := range raw {
		out[i] = T(v)
	}
	return out
}

func anySlice[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func stringSlice[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func decimalSlice(values []decimal.Decimal) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
