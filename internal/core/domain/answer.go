package domain

// NotAvailableAnswer is returned when no passage supports an answer.
const NotAvailableAnswer = "The information you asked about is not available in the uploaded documents."

// Answer is a grounded response with the sources it was composed from.
type Answer struct {
	// Text is the model output, or NotAvailableAnswer.
	Text string

	// Sources are the distinct filenames of the supplied passages.
	Sources []string

	// Grounded is false when the answer was the canned fallback.
	Grounded bool
}
