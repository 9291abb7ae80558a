package gallery

import "time"

// Stats summarizes the gallery.
type Stats struct {
	Total        int `json:"total"`
	WithStickers int `json:"withStickers"`
	Stickers     int `json:"stickers"`
}

// Stats counts entries and the stickers on them.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.entries)}
	for _, e := range s.entries {
		if e.Metadata == nil {
			continue
		}
		if e.Metadata.HasStickers {
			st.WithStickers++
		}
		st.Stickers += e.Metadata.StickerCount
	}
	return st
}

// DayFormat is the layout of Day.Date.
const DayFormat = "2006-01-02"

// Day is the entries saved on one calendar day.
type Day struct {
	Date    string
	Entries []Entry
}

// Days groups entries by local calendar day, most recent day first.
func (s *Store) Days() []Day {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := []Day{}
	idx := map[string]int{}
	for _, e := range s.entries {
		d := e.Timestamp.In(time.Local).Format(DayFormat)
		i, ok := idx[d]
		if !ok {
			i = len(days)
			idx[d] = i
			days = append(days, Day{Date: d})
		}
		days[i].Entries = append(days[i].Entries, e)
	}
	return days
}
