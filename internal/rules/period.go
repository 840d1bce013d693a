package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PaymentType is the closed set of payment regimes a period can carry.
type PaymentType string

const (
	PaymentFree      PaymentType = "FREE"
	PaymentMetered   PaymentType = "METERED"
	PaymentTicket    PaymentType = "TICKET"
	PaymentPermit    PaymentType = "PERMIT"
	PaymentNoParking PaymentType = "NO_PARKING"
)

// Day is a three-letter day code.
type Day string

const (
	Monday    Day = "MON"
	Tuesday   Day = "TUE"
	Wednesday Day = "WED"
	Thursday  Day = "THU"
	Friday    Day = "FRI"
	Saturday  Day = "SAT"
	Sunday    Day = "SUN"
)

// Week lists the day codes in calendar order.
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Period is one validated, time-bounded parking rule.
type Period struct {
	TimeLimitMinutes  *int
	PaymentType       PaymentType
	DaysOfWeek        []Day // empty means every day
	StartTime         *string
	EndTime           *string
	SpecialConditions *string
}

// RawPeriod is a single period object as decoded from model output.
type RawPeriod map[string]any

var (
	ErrUnknownPaymentType = errors.New("unknown payment type")
	ErrInvalidTimeLimit   = errors.New("invalid time limit")
	ErrInvalidDays        = errors.New("invalid days of week")
	ErrInvalidTime        = errors.New("invalid wall-clock time")
)

// paymentSynonyms is keyed on the normalized spelling (upper case, single spaces).
var paymentSynonyms = map[string]PaymentType{
	"FREE":                PaymentFree,
	"UNRESTRICTED":        PaymentFree,
	"FREE PARKING":        PaymentFree,
	"METERED":             PaymentMetered,
	"METER":               PaymentMetered,
	"METERS":              PaymentMetered,
	"PAID":                PaymentMetered,
	"PAY":                 PaymentMetered,
	"PARKING METER":       PaymentMetered,
	"TICKET":              PaymentTicket,
	"TICKET PARKING":      PaymentTicket,
	"PAY AND DISPLAY":     PaymentTicket,
	"PAY & DISPLAY":       PaymentTicket,
	"PERMIT":              PaymentPermit,
	"PERMIT HOLDERS":      PaymentPermit,
	"PERMIT HOLDERS ONLY": PaymentPermit,
	"RESIDENT PERMIT":     PaymentPermit,
	"NO PARKING":          PaymentNoParking,
	"NO STOPPING":         PaymentNoParking,
	"CLEARWAY":            PaymentNoParking,
}

var dayNames = map[string]Day{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
}

var dayAliases = map[string]Day{
	"weds": Wednesday,
	"thur": Thursday,
	"thr":  Thursday,
}

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParsePaymentType maps a free-form payment label onto the closed enum.
func ParsePaymentType(s string) (PaymentType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	if p, ok := paymentSynonyms[norm]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentType, s)
}

// ParseDay normalizes a single day token ("Mon", "monday", "TUES") to its code.
func ParseDay(s string) (Day, bool) {
	tok := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if d, ok := dayAliases[tok]; ok {
		return d, true
	}
	if len(tok) < 3 {
		return "", false
	}
	for full, d := range dayNames {
		if strings.HasPrefix(full, tok) {
			return d, true
		}
	}
	return "", false
}

// ValidatePeriod coerces one raw period into a Period or reports why it cannot.
func ValidatePeriod(raw RawPeriod) (Period, error) {
	var p Period

	pt, ok := raw["payment_type"].(string)
	if !ok {
		return Period{}, fmt.Errorf("%w: missing or not a string", ErrUnknownPaymentType)
	}
	payment, err := ParsePaymentType(pt)
	if err != nil {
		return Period{}, err
	}
	p.PaymentType = payment

	if p.TimeLimitMinutes, err = parseTimeLimit(raw["time_limit_mins"]); err != nil {
		return Period{}, err
	}
	if p.DaysOfWeek, err = parseDays(raw["days_of_week"]); err != nil {
		return Period{}, err
	}
	if p.StartTime, err = parseClock(raw["start_time"]); err != nil {
		return Period{}, fmt.Errorf("start_time: %w", err)
	}
	if p.EndTime, err = parseClock(raw["end_time"]); err != nil {
		return Period{}, fmt.Errorf("end_time: %w", err)
	}
	p.SpecialConditions = optionalText(raw["special_conditions"])

	return p, nil
}

func parseTimeLimit(v any) (*int, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			f = float64(n)
			break
		}
		parsed, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeLimit, t)
		}
		f = parsed
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeLimit, t)
		}
		f = float64(n)
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidTimeLimit, v)
	}

	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeLimit, f)
	}
	n := int(f)
	return &n, nil
}

func parseDays(v any) ([]Day, error) {
	var tokens []string
	switch t := v.(type) {
	case nil:
		return []Day{}, nil
	case string:
		tokens = []string{t}
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				continue
			}
			tokens = append(tokens, s)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidDays, v)
	}

	seen := make(map[Day]bool, len(Week))
	for _, tok := range tokens {
		days, ok := expandDayToken(tok)
		if !ok {
			logf("dropping unknown day token %q", tok)
			continue
		}
		for _, d := range days {
			seen[d] = true
		}
	}

	out := make([]Day, 0, len(seen))
	for _, d := range Week {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out, nil
}

// expandDayToken handles single days and ranges such as "MON-FRI".
func expandDayToken(tok string) ([]Day, bool) {
	if d, ok := ParseDay(tok); ok {
		return []Day{d}, true
	}
	from, to, found := strings.Cut(tok, "-")
	if !found {
		return nil, false
	}
	start, ok1 := ParseDay(from)
	end, ok2 := ParseDay(to)
	if !ok1 || !ok2 {
		return nil, false
	}
	i, j := dayIndex(start), dayIndex(end)
	var days []Day
	for k := i; ; k = (k + 1) % len(Week) {
		days = append(days, Week[k])
		if k == j {
			break
		}
	}
	return days, true
}

func dayIndex(d Day) int {
	for i, w := range Week {
		if w == d {
			return i
		}
	}
	return -1
}

// parseClock accepts H:MM or HH:MM and returns it zero padded. 24:00 is
// allowed as an end-of-day marker.
func parseClock(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidTime, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	out := fmt.Sprintf("%02d:%02d", hour, minute)
	return &out, nil
}

func optionalText(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
