// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microformats

// backcompatRoots maps the classic microformats root class names
// to their microformats2 type.
var backcompatRoots = map[string]string{
	"vcard":             "h-card",
	"hentry":            "h-entry",
	"vevent":            "h-event",
	"hreview":           "h-review",
	"hreview-aggregate": "h-review-aggregate",
	"hrecipe":           "h-recipe",
	"hproduct":          "h-product",
	"hfeed":             "h-feed",
	"adr":               "h-adr",
	"geo":               "h-geo",
}

var adrProperties = map[string]string{
	"post-office-box":  "p-post-office-box",
	"extended-address": "p-extended-address",
	"street-address":   "p-street-address",
	"locality":         "p-locality",
	"region":           "p-region",
	"postal-code":      "p-postal-code",
	"country-name":     "p-country-name",
}

var geoProperties = map[string]string{
	"latitude":  "p-latitude",
	"longitude": "p-longitude",
}

// backcompatProperties maps, for each classic root class, its property
// class names to the equivalent microformats2 property.
var backcompatProperties = map[string]map[string]string{
	"vcard": merge(adrProperties, geoProperties, map[string]string{
		"fn":                "p-name",
		"nickname":          "p-nickname",
		"given-name":        "p-given-name",
		"family-name":       "p-family-name",
		"additional-name":   "p-additional-name",
		"honorific-prefix":  "p-honorific-prefix",
		"honorific-suffix":  "p-honorific-suffix",
		"url":               "u-url",
		"email":             "u-email",
		"photo":             "u-photo",
		"logo":              "u-logo",
		"uid":               "u-uid",
		"tel":               "p-tel",
		"org":               "p-org",
		"organization-name": "p-organization-name",
		"title":             "p-job-title",
		"role":              "p-role",
		"note":              "p-note",
		"category":          "p-category",
		"bday":              "dt-bday",
		"adr":               "p-adr",
		"geo":               "p-geo",
	}),
	"hentry": {
		"entry-title":   "p-name",
		"entry-summary": "p-summary",
		"entry-content": "e-content",
		"published":     "dt-published",
		"updated":       "dt-updated",
		"author":        "p-author",
		"category":      "p-category",
		"geo":           "p-geo",
		"latitude":      "p-latitude",
		"longitude":     "p-longitude",
	},
	"vevent": {
		"summary":     "p-name",
		"dtstart":     "dt-start",
		"dtend":       "dt-end",
		"duration":    "dt-duration",
		"description": "p-description",
		"url":         "u-url",
		"location":    "p-location",
		"category":    "p-category",
		"geo":         "p-geo",
		"attendee":    "p-attendee",
		"contact":     "p-contact",
		"organizer":   "p-organizer",
	},
	"hreview": {
		"summary":     "p-name",
		"item":        "p-item",
		"reviewer":    "p-author",
		"dtreviewed":  "dt-published",
		"rating":      "p-rating",
		"best":        "p-best",
		"worst":       "p-worst",
		"description": "e-content",
		"url":         "u-url",
	},
	"hreview-aggregate": {
		"summary": "p-name",
		"item":    "p-item",
		"rating":  "p-rating",
		"best":    "p-best",
		"worst":   "p-worst",
		"average": "p-average",
		"count":   "p-count",
		"votes":   "p-votes",
	},
	"hrecipe": {
		"fn":           "p-name",
		"ingredient":   "p-ingredient",
		"yield":        "p-yield",
		"instructions": "e-instructions",
		"duration":     "dt-duration",
		"photo":        "u-photo",
		"summary":      "p-summary",
		"author":       "p-author",
		"nutrition":    "p-nutrition",
		"category":     "p-category",
	},
	"hproduct": {
		"fn":          "p-name",
		"photo":       "u-photo",
		"brand":       "p-brand",
		"category":    "p-category",
		"description": "p-description",
		"identifier":  "u-identifier",
		"url":         "u-url",
		"review":      "p-review",
		"price":       "p-price",
	},
	"hfeed": {
		"author":   "p-author",
		"photo":    "u-photo",
		"url":      "u-url",
		"category": "p-category",
	},
	"adr": adrProperties,
	"geo": geoProperties,
}

func merge(maps ...map[string]string) map[string]string {
	res := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			res[k] = v
		}
	}
	return res
}
