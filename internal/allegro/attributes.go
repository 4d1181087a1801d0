package allegro

import "regexp"

// Sellers hide an internal product id inside the offer description as a
// paragraph of the form "<p>// XYZ-123</p>".
var internalIDPattern = regexp.MustCompile(`<p>// (.*?)</p>`)

// ExtractAttributes derives the flat attribute map for one offer. Offers
// without a category yield an empty map; a missing description or malformed
// sections simply mean no internalId.
func ExtractAttributes(details *OfferDetails) map[string]string {
	attributes := make(map[string]string)
	if details == nil || details.Category == nil {
		return attributes
	}
	attributes["categoryId"] = details.Category.ID

	if id, ok := extractInternalID(details); ok {
		attributes["internalId"] = id
	}
	return attributes
}

func extractInternalID(details *OfferDetails) (string, bool) {
	if details.Description == nil {
		return "", false
	}
	for _, section := range details.Description.Sections {
		for _, item := range section.Items {
			if item.Content == "" {
				continue
			}
			if match := internalIDPattern.FindStringSubmatch(item.Content); match != nil {
				return match[1], true
			}
		}
	}
	return "", false
}
