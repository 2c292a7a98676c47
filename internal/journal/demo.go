package journal

import "time"

// DemoPetName is the profile created by the sample journal.
const DemoPetName = "Theo (Demo)"

type demoEntry struct {
	daysAgo, hour, minute int
	record                func(at time.Time) LogRecord
}

func demoFood(name, quantity string, scavenged, safe bool) func(time.Time) LogRecord {
	return func(at time.Time) LogRecord {
		return NewFoodLog(at, Food{Name: name, Quantity: quantity, IsScavenged: scavenged, IsSafe: safe})
	}
}

func demoStool(code int) func(time.Time) LogRecord {
	return func(at time.Time) LogRecord { return NewStoolLog(at, code) }
}

func demoSymptom(text string) func(time.Time) LogRecord {
	return func(at time.Time) LogRecord { return NewSymptomLog(at, text) }
}

func demoNote(text string) func(time.Time) LogRecord {
	return func(at time.Time) LogRecord { return NewNoteLog(at, text) }
}

var demoJournal = []demoEntry{
	{0, 8, 5, demoFood("Prescription Kibble", "1 cup", false, true)},
	{0, 8, 30, demoStool(3)},
	{0, 12, 15, demoNote("Seems to be back to normal today. Phew!")},
	{1, 8, 0, demoFood("Prescription Kibble", "1 cup", false, true)},
	{1, 10, 0, demoSymptom("A bit of gurgling stomach noises")},
	{1, 14, 0, demoFood("New Lamb Treats", "2 treats", false, false)},
	{1, 18, 0, demoStool(5)},
	{2, 8, 10, demoFood("Prescription Kibble", "1 cup", false, true)},
	{2, 9, 0, demoStool(3)},
	{2, 17, 30, demoFood("New Lamb Treats", "1 treat", false, false)},
	{2, 19, 0, demoStool(4)},
	{2, 20, 0, demoNote("Was a little hesitant to eat dinner.")},
	{3, 8, 0, demoFood("Prescription Kibble", "1 cup", false, true)},
	{3, 8, 45, demoStool(3)},
	{3, 13, 0, demoFood("Dropped piece of cheese", "tiny piece", true, false)},
	{3, 17, 0, demoFood("Prescription Kibble", "1 cup", false, true)},
	{3, 18, 30, demoStool(3)},
	{3, 19, 0, demoNote("Lots of energy at the park!")},
}

// DemoLogs returns a four-day sample journal ending on now's local day.
func DemoLogs(now time.Time, loc *time.Location) []LogRecord {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	out := make([]LogRecord, 0, len(demoJournal))
	for _, e := range demoJournal {
		at := time.Date(local.Year(), local.Month(), local.Day()-e.daysAgo, e.hour, e.minute, 0, 0, loc)
		out = append(out, e.record(at))
	}
	return out
}
