package session

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/example/bbdc-bot/internal/bbdc"
)

// ChooseSlot picks a slot from one month's collection: the earliest day wins,
// and on that day the first slot whose session number is in want. With no
// preference match (or no preference at all) the day's first slot is taken.
// An empty collection yields no slot.
func ChooseSlot(coll bbdc.SlotCollection, want []int) (bbdc.Slot, bool) {
	if len(coll) == 0 {
		return bbdc.Slot{}, false
	}
	days := make([]string, 0, len(coll))
	for d := range coll {
		days = append(days, d)
	}
	sort.Strings(days)

	slots := coll[days[0]]
	if len(slots) == 0 {
		return bbdc.Slot{}, false
	}
	chosen := slots[0]
	for _, s := range slots {
		if n, ok := s.SessionNumber(); ok && slices.Contains(want, n) {
			chosen = s
			break
		}
	}
	return chosen, true
}

// SlotMessage renders the notification text for a found slot.
func SlotMessage(s bbdc.Slot) string {
	date := s.SlotRefDate
	if t, err := time.Parse("2006-01-02 15:04:05", s.SlotRefDate); err == nil {
		date = t.Format("02/01/2006")
	}
	return fmt.Sprintf(
		"Slot Available\nDate: %s\nTime: %s - %s\nSession: %s\nTotal Fee: %s",
		date, s.StartTime, s.EndTime, s.SlotRefName, s.TotalFee,
	)
}
