package notify

import (
	"fmt"
	"strings"

	"github.com/wtshilac/random-web-scraper/internal/watch"
)

func subjectFor(events []watch.ChangeEvent) string {
	newItems, restocks := 0, 0
	for _, e := range events {
		switch e.Kind {
		case watch.KindRestock:
			restocks++
		default:
			newItems++
		}
	}
	switch {
	case restocks > 0 && newItems > 0:
		return fmt.Sprintf("Alert: %d new items, %d restocks", newItems, restocks)
	case restocks > 0:
		return fmt.Sprintf("Alert: %d restock(s)", restocks)
	default:
		return fmt.Sprintf("Alert: %d new item(s) found", newItems)
	}
}

// renderPlain builds the line-per-event plain-text body shared by the
// email and telegram channels.
func renderPlain(events []watch.ChangeEvent) string {
	kept, dropped := capEvents(events)

	var b strings.Builder
	for _, e := range kept {
		switch e.Kind {
		case watch.KindRestock:
			b.WriteString("- BACK IN STOCK: ")
		default:
			b.WriteString("- NEW: ")
		}
		b.WriteString(e.Title)
		switch e.Price {
		case "":
		case watch.PriceUnknown:
			b.WriteString(" (")
			b.WriteString(e.Price)
			b.WriteString(")")
		default:
			b.WriteString(" ($")
			b.WriteString(e.Price)
			b.WriteString(")")
		}
		b.WriteString("\n")
		if e.Link != "" {
			b.WriteString("  Link: ")
			b.WriteString(e.Link)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if dropped > 0 {
		fmt.Fprintf(&b, "(and %d more)\n", dropped)
	}
	return b.String()
}
