package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	noonHHMM   = "12:00"
)

var weekdayNames = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

// displayDate renders YYYY-MM-DD as "02/05/2025 (sexta-feira)".
func displayDate(iso string) string {
	d, err := time.Parse(dateLayout, iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%s (%s)", d.Format("02/01/2006"), weekdayNames[d.Weekday()])
}

// shortDate renders YYYY-MM-DD as DD/MM/YYYY.
func shortDate(iso string) string {
	d, err := time.Parse(dateLayout, iso)
	if err != nil {
		return iso
	}
	return d.Format("02/01/2006")
}

// normalizeHHMM trims seconds and pads the hour: "7:30:00" -> "07:30".
func normalizeHHMM(v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

// upcomingDates keeps dates on or after today, de-duplicated and sorted.
func upcomingDates(raw []string, today time.Time) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	floor := today.Format(dateLayout)
	for _, r := range raw {
		d, err := time.Parse(dateLayout, strings.TrimSpace(r))
		if err != nil {
			continue
		}
		iso := d.Format(dateLayout)
		if iso < floor {
			continue
		}
		if _, dup := seen[iso]; dup {
			continue
		}
		seen[iso] = struct{}{}
		out = append(out, iso)
	}
	sort.Strings(out)
	return out
}

// slotsForPeriod filters slots by period of day. Morning is a start before
// noon; afternoon is noon or later. Slots are de-duplicated by start time.
func slotsForPeriod(slots []TimeSlot, period Period) []TimeOption {
	seen := make(map[string]struct{}, len(slots))
	out := make([]TimeOption, 0, len(slots))
	for _, s := range slots {
		start, ok := normalizeHHMM(s.Start)
		if !ok {
			continue
		}
		end, ok := normalizeHHMM(s.End)
		if !ok {
			end = ""
		}
		morning := start < noonHHMM
		if (period == PeriodMorning) != morning {
			continue
		}
		if _, dup := seen[start]; dup {
			continue
		}
		seen[start] = struct{}{}
		out = append(out, TimeOption{Start: start, End: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func optionNames(opts []Option) []string {
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.Name
	}
	return names
}

func dateLabels(dates []string) []string {
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = displayDate(d)
	}
	return labels
}

func timeLabels(times []TimeOption) []string {
	labels := make([]string, len(times))
	for i, t := range times {
		labels[i] = t.Start
	}
	return labels
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
