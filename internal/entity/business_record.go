package entity

// Placeholder values used when a detail field cannot be resolved.
const (
	UnknownName     = "Unknown Business"
	UnknownAddress  = "Address not found"
	UnknownCategory = "Category not found"
)

// ExtraContacts holds the overflow emails/phones that did not fit the primary slots.
type ExtraContacts struct {
	Emails          []string `json:"emails"`
	Phones          []string `json:"phones"`
	SecondarySource bool     `json:"secondary_source"`
}

// BusinessRecord mirrors the `business_records` PostgreSQL table schema.
// SourceReference is the canonical detail-view URL and is unique within a session.
type BusinessRecord struct {
	ID                     int64         `json:"-"`
	Name                   string        `json:"name"`
	Address                string        `json:"address"`
	Rating                 *float64      `json:"rating,omitempty"`
	ReviewCount            *int          `json:"review_count,omitempty"`
	Category               string        `json:"category"`
	Website                string        `json:"website,omitempty"`
	Phone                  string        `json:"phone,omitempty"`
	PrimaryEmail           string        `json:"primary_email,omitempty"`
	SecondaryEmail         string        `json:"secondary_email,omitempty"`
	SourceReference        string        `json:"source_reference"`
	SearchQuery            string        `json:"search_query"`
	SecondarySourceVisited bool          `json:"secondary_source_visited"`
	ExtraContacts          ExtraContacts `json:"extra_contacts"`
}

// HasContact reports whether the record carries at least one email or phone.
func (r BusinessRecord) HasContact() bool {
	return r.PrimaryEmail != "" || r.SecondaryEmail != "" || r.Phone != ""
}
