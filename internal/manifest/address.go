package manifest

import (
	"fmt"
	"strings"
)

// maxAddressLineLength is the carrier's limit for address line 1.
const maxAddressLineLength = 35

// Address is a parsed delivery address ready for the manifest CSV.
type Address struct {
	Line1    string
	Line2    string
	City     string
	Region   string
	Postcode string
}

// ParseAddress splits a provider address string into manifest fields. The
// last three comma-separated fields are city, region and postcode; the
// remaining head holds the address lines.
func ParseAddress(raw string) (Address, error) {
	parts := strings.Split(raw, ",")
	if len(parts) < 4 {
		return Address{}, fmt.Errorf("address %q has too few fields", raw)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	addr := Address{
		City:     parts[len(parts)-3],
		Region:   parts[len(parts)-2],
		Postcode: parts[len(parts)-1],
	}
	head := strings.Join(parts[:len(parts)-3], ", ")

	// Everything from '#' onward is dropped (unit markers the carrier
	// rejects).
	if i := strings.Index(head, "#"); i >= 0 {
		head = strings.TrimSpace(head[:i])
	}

	if i := strings.Index(head, "\t"); i >= 0 {
		addr.Line1 = strings.TrimSpace(head[:i])
		addr.Line2 = strings.TrimSpace(head[i+1:])
	} else {
		addr.Line1 = head
	}

	addr.Line1, addr.Line2 = fitLine1(addr.Line1, addr.Line2)

	// Tracking artifacts appear in brackets after the postcode.
	if i := strings.Index(addr.Postcode, "("); i >= 0 {
		addr.Postcode = strings.TrimSpace(addr.Postcode[:i])
	}

	if addr.Region == "" {
		addr.Region = addr.City
	}
	return addr, nil
}

// fitLine1 moves trailing words from line 1 to line 2 until line 1 fits the
// carrier limit; with no spaces to split on it hard-cuts.
func fitLine1(line1, line2 string) (string, string) {
	for len(line1) > maxAddressLineLength {
		i := strings.LastIndex(line1, " ")
		if i < 0 {
			rest := line1[maxAddressLineLength:]
			line1 = line1[:maxAddressLineLength]
			line2 = joinWords(rest, line2)
			break
		}
		line2 = joinWords(line1[i+1:], line2)
		line1 = strings.TrimSpace(line1[:i])
	}
	return line1, line2
}

func joinWords(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + " " + tail
}

// SplitName splits a full name on the first space. A single-word name keeps
// the whole value as the surname with a placeholder first name.
func SplitName(name string) (first, second string) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, " "); i >= 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return "First name", name
}
