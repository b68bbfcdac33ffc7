package llm

import (
	"fmt"
	"time"
)

// eventPrompt builds the system prompt for event extraction. Today's
// date is embedded so the model can resolve year-less dates without
// guessing a past year, and every field is explicitly nullable.
func eventPrompt(now time.Time) string {
	return fmt.Sprintf(`For context, today's date is %s. If the year of the event is not specified, assume it is the current year or a future year. Do not guess a past year.

Extract the following information about the event from the provided page excerpt and respond with a single JSON object:
1. event_title: The main title of the event.
2. description: A detailed summary of the event.
3. start_datetime: The starting date and time, in strict ISO 8601 format (e.g. YYYY-MM-DDTHH:MM:SS). If you cannot find a time, use T00:00:00.
4. end_datetime: The ending date and time, also in strict ISO 8601 format. If no end time is specified, return null.
5. location: The physical address or venue of the event.
If any field cannot be found, return null for that field. Never invent values.`, now.Format("2006-01-02"))
}

// updatePrompt builds the system prompt for article/update extraction.
func updatePrompt(now time.Time) string {
	return fmt.Sprintf(`For context, today's date is %s.

Extract the following information about the article or announcement from the provided page excerpt and respond with a single JSON object:
1. title: The headline or title.
2. content: A concise summary of the main content, a few sentences at most.
3. source: The publication or organization the content comes from, if identifiable.
If any field cannot be found, return null for that field. Never invent values.`, now.Format("2006-01-02"))
}
