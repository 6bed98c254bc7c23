package application

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/ports"
)

type DayCell struct {
	Day      int              `json:"day"`
	Date     domain.Date      `json:"date"`
	IsToday  bool             `json:"is_today"`
	Holidays []domain.Holiday `json:"holidays"`
	Leaves   []domain.Leave   `json:"leaves"`
}

// MonthView is a Monday-first calendar grid. Cells outside the month are nil.
type MonthView struct {
	Year  int          `json:"year"`
	Month time.Month   `json:"month"`
	Title string       `json:"title"`
	Weeks [][]*DayCell `json:"weeks"`
}

type CalendarService struct {
	api       ports.ComplianceAPI
	clock     ports.Clock
	sanitizer *bluemonday.Policy
}

func NewCalendarService(api ports.ComplianceAPI, clock ports.Clock) *CalendarService {
	if clock == nil {
		clock = time.Now
	}
	return &CalendarService{api: api, clock: clock, sanitizer: bluemonday.StrictPolicy()}
}

func (s *CalendarService) CurrentMonth() (int, time.Month) {
	now := s.clock()
	return now.Year(), now.Month()
}

func (s *CalendarService) Month(ctx context.Context, credential domain.Credential, year int, month time.Month) (MonthView, error) {
	grid, err := domain.BuildMonthGrid(year, month)
	if err != nil {
		return MonthView{}, err
	}
	events, err := s.api.CalendarEvents(ctx, credential, year, month)
	if err != nil {
		return MonthView{}, err
	}
	for i := range events.Holidays {
		events.Holidays[i].Description = s.sanitizer.Sanitize(events.Holidays[i].Description)
	}
	all := events.All()
	today := domain.DateOf(s.clock().UTC())

	view := MonthView{
		Year:  year,
		Month: month,
		Title: fmt.Sprintf("%s %d", month, year),
		Weeks: make([][]*DayCell, 0, len(grid)),
	}
	for _, week := range grid {
		row := make([]*DayCell, len(week))
		for col, day := range week {
			if day == 0 {
				continue
			}
			date := domain.NewDate(year, month, day)
			cell := &DayCell{Day: day, Date: date, IsToday: date == today, Holidays: []domain.Holiday{}, Leaves: []domain.Leave{}}
			for _, e := range domain.EventsOn(date, all) {
				switch ev := e.(type) {
				case domain.Holiday:
					cell.Holidays = append(cell.Holidays, ev)
				case domain.Leave:
					cell.Leaves = append(cell.Leaves, ev)
				}
			}
			row[col] = cell
		}
		view.Weeks = append(view.Weeks, row)
	}
	return view, nil
}
