package services

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

const (
	CountryChina        = "CN"
	CountryWeekdaysOnly = "NONE"
)

var holidaySets = map[string][]*cal.Holiday{
	"US": us.Holidays,
	"GB": gb.Holidays,
	"IE": ie.Holidays,
	"CA": ca.Holidays,
	"AU": au.HolidaysNSW,
	"NZ": nz.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"NL": nl.Holidays,
}

// Review SLA in business days per service tier.
var reviewBusinessDays = map[string]int{
	models.TierUrgent:   1,
	models.TierPriority: 3,
	models.TierStandard: 10,
}

// BusinessCalendar does working-day arithmetic for one jurisdiction.
type BusinessCalendar struct {
	country string
	cal     *cal.BusinessCalendar
}

// NewBusinessCalendar falls back to weekdays only for unknown countries.
func NewBusinessCalendar(country string) *BusinessCalendar {
	country = strings.ToUpper(strings.TrimSpace(country))
	c := &BusinessCalendar{country: country}
	if holidays, ok := holidaySets[country]; ok {
		c.cal = cal.NewBusinessCalendar()
		c.cal.Name = country
		c.cal.AddHoliday(holidays...)
	}
	return c
}

func (c *BusinessCalendar) Country() string { return c.country }

func (c *BusinessCalendar) IsWorkday(t time.Time) bool {
	if c.country == CountryChina {
		return isWorkdayChina(t)
	}
	if c.cal == nil {
		return !cal.IsWeekend(t)
	}
	return c.cal.IsWorkday(t)
}

// China moves weekend days around public holidays, so weekday checks alone are wrong there.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay())
	if holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

// AddBusinessDays moves t forward n working days, keeping the time of day.
func (c *BusinessCalendar) AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if c.IsWorkday(t) {
			n--
		}
	}
	return t
}

// ReviewDueAt is when a matter filed at from should have been reviewed.
func (c *BusinessCalendar) ReviewDueAt(tier string, from time.Time) time.Time {
	days, ok := reviewBusinessDays[tier]
	if !ok {
		days = reviewBusinessDays[models.TierStandard]
	}
	return c.AddBusinessDays(from, days)
}

func SupportedCalendarCountries() []string {
	countries := []string{CountryChina, CountryWeekdaysOnly}
	for code := range holidaySets {
		countries = append(countries, code)
	}
	return countries
}
