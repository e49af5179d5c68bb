package roster

import (
	"fmt"
	"strings"
)

// generateICS produces an iCal feed for a roster: one all-week event per
// assignment listing the watering team and substitutes.
func generateICS(row Row) string {
	var b strings.Builder

	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//Gieplan//Roster//EN\r\n")
	b.WriteString("X-WR-CALNAME:Gieplan Watering Duty\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("METHOD:PUBLISH\r\n")

	for _, wa := range row.Assignments {
		start := wa.WeekStart
		end := start.AddDate(0, 0, 7)

		uid := fmt.Sprintf("%s-%s@gieplan", row.ID, start.Format("20060102"))
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString(fmt.Sprintf("UID:%s\r\n", uid))
		b.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", start.Format("20060102")))
		b.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", end.Format("20060102")))
		b.WriteString(fmt.Sprintf("SUMMARY:Watering duty: %s\r\n", strings.Join(wa.Main, ", ")))

		desc := fmt.Sprintf("Substitutes: %s", strings.Join(wa.Substitutes, ", "))
		if wa.Comment != nil && *wa.Comment != "" {
			desc += "\\n" + *wa.Comment
		}
		if wa.Emergency {
			desc += "\\nEMERGENCY WEEK"
			if wa.EmergencyReason != nil {
				desc += ": " + *wa.EmergencyReason
			}
		}
		b.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", desc))
		b.WriteString("END:VEVENT\r\n")
	}

	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}
