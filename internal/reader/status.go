package reader

// StatusReporter surfaces human-readable progress and error text on an
// optional status display. A nil reporter is valid and discards everything.
// Each call overwrites the previous text; an empty message clears it.
type StatusReporter func(message string)

func (r StatusReporter) report(message string) {
	if r != nil {
		r(message)
	}
}
