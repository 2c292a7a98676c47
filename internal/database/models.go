package database

// RecallNotice is a recall or safety alert that matched something in the journal.
type RecallNotice struct {
	ID             int64
	URL            string
	Title          string
	Source         *string
	PublishedDate  *string
	MatchedTerms   []string
	Content        *string
	ContentFetched bool
	CollectedAt    *string
}

// Report is a generated journal report for a period.
type Report struct {
	ID           int64
	PetID        string
	PeriodID     string
	TLDR         string
	BodyMarkdown string
	AverageScore int
	LogCount     int
	GeneratedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Pets           int
	TotalLogs      int
	FoodLogs       int
	StoolLogs      int
	SymptomLogs    int
	NoteLogs       int
	RecallNotices  int
	Reports        int
	JournalVersion int64
}
