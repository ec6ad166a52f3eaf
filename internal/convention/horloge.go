package convention

import "time"

// All "today" comparisons in the back office are calendar dates in the
// Europe/Paris zone, never instants.
var ParisTZ = mustLoadParis()

func mustLoadParis() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(err)
	}
	return loc
}

// Horloge supplies "today" as a Paris calendar date. Injected so tests can
// pin the date; production code uses AujourdHui.
type Horloge func() time.Time

// AujourdHui returns today's calendar date (midnight UTC representation) in
// the Europe/Paris zone.
func AujourdHui() time.Time {
	return DateCivile(time.Now())
}

// DateCivile truncates an instant to its Paris calendar date.
func DateCivile(t time.Time) time.Time {
	y, m, d := t.In(ParisTZ).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AgeEnAnnees is the convention age rule: whole elapsed 365-day years
// between the start date and today.
func AgeEnAnnees(dateDebut, aujourdhui time.Time) int {
	jours := int(aujourdhui.Sub(DateCivile(dateDebut)).Hours() / 24)
	if jours < 0 {
		return 0
	}
	return jours / 365
}
