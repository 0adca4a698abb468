package attendance

import (
	"strings"
)

// Parse turns raw sheet text into rows of fields. Carriage returns are
// stripped and the text is split on line feeds; a line that is blank after
// trimming becomes an empty row but still occupies its index, so row numbers
// stay aligned with source line numbers.
//
// Field splitting honors the usual CSV quoting rule: a double quote toggles
// quoted mode, commas inside quotes are literal, and a doubled quote inside
// quotes collapses to one literal quote. Individual field values are not
// trimmed here; callers trim at use.
//
// An empty input yields a single empty row, which downstream code treats as a
// header-less sheet.
func Parse(text string) [][]string {
	text = strings.ReplaceAll(text, "\r", "")
	lines := strings.Split(text, "\n")

	rows := make([][]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			rows[i] = []string{}
			continue
		}
		rows[i] = splitFields(line)
	}
	return rows
}

// splitFields splits one physical line into fields, commas delimiting only
// outside quoted mode.
func splitFields(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				// Escaped quote inside a quoted field.
				field.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	fields = append(fields, field.String())
	return fields
}
