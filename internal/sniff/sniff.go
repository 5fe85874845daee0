// Package sniff classifies decoded badge payloads and extracts contact
// fields. It operates on decoded text only; the symbology the text came
// from (QR, Code128, Data Matrix, ...) is irrelevant here.
package sniff

import (
	"regexp"
	"strings"

	"lanyard/internal/domain"
)

// nameFallbackMax caps the name guess for unrecognized payloads.
const nameFallbackMax = 200

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// Parse extracts a best-effort contact from one raw payload. It is pure and
// never fails: unrecognized formats degrade to a name guess. Raw always
// carries the original, untrimmed input.
func Parse(raw string) domain.ParsedContact {
	c := domain.ParsedContact{Raw: raw}
	switch {
	case strings.Contains(raw, "BEGIN:VCARD"):
		parseVCard(raw, &c)
	case strings.Contains(raw, "MECARD:"):
		parseMeCard(raw, &c)
	default:
		t := strings.TrimSpace(raw)
		switch {
		case emailRe.MatchString(t):
			c.Email = t
		case strings.HasPrefix(t, "http"):
			c.Website = t
		default:
			c.Name = truncate(t, nameFallbackMax)
		}
	}
	return c
}

// parseVCard walks the payload line by line. Property matching is
// case-insensitive on the prefix before the first ':' and tolerates
// parameter suffixes (TEL;TYPE=WORK,VOICE:... still matches TEL).
func parseVCard(raw string, c *domain.ParsedContact) {
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		prefix := line[:idx]
		value := line[idx+1:]
		if sep := strings.Index(prefix, ";"); sep >= 0 {
			prefix = prefix[:sep]
		}
		switch strings.ToUpper(strings.TrimSpace(prefix)) {
		case "FN":
			c.Name = strings.TrimSpace(value)
		case "N":
			if c.Name == "" {
				c.Name = assembleName(value)
			}
		case "EMAIL":
			c.Email = strings.TrimSpace(value)
		case "TEL":
			c.Phone = strings.TrimSpace(value)
		case "ORG":
			c.Company = strings.TrimSpace(strings.SplitN(value, ";", 2)[0])
		case "TITLE":
			c.Title = strings.TrimSpace(value)
		case "URL":
			c.Website = strings.TrimSpace(value)
		}
	}
}

// assembleName turns a structured N value (Family;Given;Additional;...) into
// "Given Family", dropping empty components.
func assembleName(value string) string {
	parts := strings.Split(value, ";")
	var family, given string
	if len(parts) > 0 {
		family = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		given = strings.TrimSpace(parts[1])
	}
	fields := make([]string, 0, 2)
	for _, p := range []string{given, family} {
		if p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}

// parseMeCard extracts N, EMAIL, TEL and ORG from a MECARD payload. Fields
// are ';'-separated KEY:value pairs; first occurrence per key wins.
func parseMeCard(raw string, c *domain.ParsedContact) {
	body := raw[strings.Index(raw, "MECARD:")+len("MECARD:"):]
	for _, field := range strings.Split(body, ";") {
		idx := strings.Index(field, ":")
		if idx < 0 {
			continue
		}
		value := strings.TrimSpace(field[idx+1:])
		switch strings.ToUpper(strings.TrimSpace(field[:idx])) {
		case "N":
			if c.Name == "" {
				c.Name = value
			}
		case "EMAIL":
			if c.Email == "" {
				c.Email = value
			}
		case "TEL":
			if c.Phone == "" {
				c.Phone = value
			}
		case "ORG":
			if c.Company == "" {
				c.Company = value
			}
		}
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
