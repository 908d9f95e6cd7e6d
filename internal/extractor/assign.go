package extractor

import (
	"github.com/user/places-extractor/internal/contact"
	"github.com/user/places-extractor/internal/entity"
)

// assignContacts fills the contact slots of rec. Directory-page candidates
// rank ahead of website candidates, so a visit never displaces an email the
// detail view already provided.
func assignContacts(rec *entity.BusinessRecord, detail contact.Bundle, visit Visit) {
	merged := detail
	if visit.Visited {
		merged = contact.MergeBundles(detail, visit.Website)
		rec.SecondarySourceVisited = true
	}

	emails := merged.Emails
	if len(emails) > 0 {
		rec.PrimaryEmail = emails[0]
	}
	if len(emails) > 1 {
		rec.SecondaryEmail = emails[1]
	}

	if rec.Phone == "" && len(merged.Phones) > 0 {
		rec.Phone = merged.Phones[0]
	}
	own, _ := contact.NormalizePhone(rec.Phone)

	extra := entity.ExtraContacts{
		Emails:          []string{},
		Phones:          []string{},
		SecondarySource: visit.Visited && !visit.Website.Empty(),
	}
	if len(emails) > 2 {
		extra.Emails = append(extra.Emails, emails[2:]...)
	}
	for _, p := range merged.Phones {
		if p != own {
			extra.Phones = append(extra.Phones, p)
		}
	}
	rec.ExtraContacts = extra
}
