package extractor

import (
	"fmt"
	"regexp"

	"github.com/spf13/viper"
)

// Locators is the layout contract between the extractor and the directory's
// markup. Every literal that depends on the page structure lives here so that
// layout drift is fixed in configuration.
type Locators struct {
	BaseSearchURL string `mapstructure:"base_search_url"`
	// PlaceMarker is the path fragment every detail reference contains.
	PlaceMarker string `mapstructure:"place_marker"`
	// PlacePattern finds detail references in raw markup during the final sweep.
	PlacePattern string `mapstructure:"place_pattern"`

	Consent          []Locator `mapstructure:"consent"`
	ResultIndicators []Locator `mapstructure:"result_indicators"`
	Links            []Locator `mapstructure:"links"`
	ScrollContainers []string  `mapstructure:"scroll_containers"`
	ShowMore         []Locator `mapstructure:"show_more"`
	EndOfList        []string  `mapstructure:"end_of_list"`

	Name      []Locator `mapstructure:"name"`
	Address   []Locator `mapstructure:"address"`
	Rating    []Locator `mapstructure:"rating"`
	Reviews   []Locator `mapstructure:"reviews"`
	Category  []Locator `mapstructure:"category"`
	Website   []Locator `mapstructure:"website"`
	Phone     []Locator `mapstructure:"phone"`
	PhoneText []Locator `mapstructure:"phone_text"`

	// WebsiteExclude lists lower-case URL fragments that mark a link as
	// pointing back into the directory itself.
	WebsiteExclude []string  `mapstructure:"website_exclude"`
	ContactLink    []Locator `mapstructure:"contact_link"`
}

// DefaultLocators returns the contract for the current map directory layout.
func DefaultLocators() *Locators {
	const place = `contains(@href, "/maps/place/")`
	return &Locators{
		BaseSearchURL: "https://www.google.com/maps/search/",
		PlaceMarker:   "/maps/place/",
		PlacePattern:  `https://www\.google\.com/maps/place/[^"\s]+`,
		Consent: []Locator{
			XPath(`//button[contains(text(), 'Accept all')]`),
			XPath(`//button/span[contains(text(), 'Accept all')]/..`),
			XPath(`//button[contains(text(), 'I agree')]`),
			XPath(`//button[contains(text(), 'Alles accepteren')]`),
			XPath(`//button[contains(text(), 'Tout accepter')]`),
			XPath(`//button[contains(text(), 'Aceptar todo')]`),
			XPath(`//form//button[@type='submit']`),
		},
		ResultIndicators: []Locator{
			XPath(`//div[contains(@class, 'Nv2PK')]`),
			XPath(`//div[@role='article']`),
			XPath(`//a[` + place + `]`),
			XPath(`//div[contains(@class, 'bfdHYd')]`),
			XPath(`//div[contains(@class, 'THOPZb')]`),
		},
		Links: []Locator{
			XPath(`//a[` + place + `]`),
			XPath(`//div[@role="article"]//a[` + place + `]`),
			XPath(`//div[contains(@class, "Nv2PK")]//a[` + place + `]`),
			XPath(`//div[contains(@class, "bfdHYd")]//a[` + place + `]`),
			XPath(`//div[contains(@class, "lI9IFe")]//a[` + place + `]`),
			XPath(`//div[contains(@class, "THOPZb")]//a[` + place + `]`),
			XPath(`//div[contains(@class, "VkpGBb")]//a[` + place + `]`),
			XPath(`//div[contains(@class, "m6QErb")]//a[` + place + `]`),
			CSS(`a.hfpxzc`),
		},
		ScrollContainers: []string{
			`div[role="feed"]`,
			`[role="main"] .m6QErb[aria-label]`,
			`.m6QErb`,
			`#pane`,
			`.section-scrollbox`,
			`.section-listbox`,
		},
		ShowMore: []Locator{
			XPath(`//button[contains(text(), 'Show more')]`),
			XPath(`//button[contains(text(), 'More results')]`),
			XPath(`//span[contains(text(), 'Show more')]/parent::button`),
		},
		EndOfList: []string{
			"You've reached the end of the list",
			"You&#39;ve reached the end of the list",
		},
		Name: []Locator{
			CSS(`h1.DUwDvf`),
			CSS(`h1[data-attrid="title"]`),
			CSS(`h1.fontHeadlineLarge`),
			CSS(`h1`),
			CSS(`.DUwDvf`),
			CSS(`[data-attrid="title"]`),
		},
		Address: []Locator{
			CSS(`button[data-item-id="address"]`),
			CSS(`[data-item-id="address"]`),
			CSS(`.rogA2c .Io6YTe`),
			CSS(`[data-item-id*="address"]`),
		},
		Rating: []Locator{
			CSS(`.F7nice span[aria-hidden="true"]`),
			CSS(`.ceNzKf[aria-label*="stars"]`),
			CSS(`.MW4etd`),
			CSS(`.fontDisplayLarge`),
		},
		Reviews: []Locator{
			CSS(`.F7nice span:nth-child(2)`),
			CSS(`button[aria-label*="reviews"]`),
			CSS(`.UY7F9`),
		},
		Category: []Locator{
			CSS(`button.DkEaL`),
			CSS(`.DkEaL`),
			CSS(`button[jsaction*="category"]`),
			CSS(`.YhemCb`),
		},
		Website: []Locator{
			CSS(`a[data-item-id="authority"]`),
			CSS(`a[data-item-id*="website"]`),
			CSS(`.CsEnBe a[href^="http"]`),
		},
		Phone: []Locator{
			XPath(`//button[starts-with(@data-item-id, 'phone:tel:')]`),
			XPath(`//button[contains(@data-item-id, 'phone')]`),
			XPath(`//div[contains(@data-item-id, 'phone')]//div[contains(@class, 'Io6YTe')]`),
			XPath(`//a[starts-with(@href, 'tel:')]`),
			XPath(`//button[contains(@aria-label, 'Phone')]`),
			XPath(`//button[contains(@aria-label, 'Call')]`),
		},
		PhoneText: []Locator{
			XPath(`//span[contains(text(), '(') and contains(text(), ')')]`),
			XPath(`//div[contains(@class, 'fontBodyMedium')]`),
		},
		WebsiteExclude: []string{"google.com", "/maps", "goo.gl"},
		ContactLink: []Locator{
			XPath(`//a[contains(translate(text(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'contact')]`),
			XPath(`//a[contains(translate(@href, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'contact')]`),
		},
	}
}

// LoadLocators overlays the file at path onto DefaultLocators. Keys absent
// from the file keep their defaults; an empty path returns the defaults.
func LoadLocators(path string) (*Locators, error) {
	loc := DefaultLocators()
	if path == "" {
		return loc, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read locators file %s: %w", path, err)
	}
	var file Locators
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode locators file %s: %w", path, err)
	}
	loc.overlay(&file)
	if err := loc.Validate(); err != nil {
		return nil, fmt.Errorf("locators file %s: %w", path, err)
	}
	return loc, nil
}

func (l *Locators) overlay(o *Locators) {
	setString(&l.BaseSearchURL, o.BaseSearchURL)
	setString(&l.PlaceMarker, o.PlaceMarker)
	setString(&l.PlacePattern, o.PlacePattern)
	setSlice(&l.Consent, o.Consent)
	setSlice(&l.ResultIndicators, o.ResultIndicators)
	setSlice(&l.Links, o.Links)
	setSlice(&l.ScrollContainers, o.ScrollContainers)
	setSlice(&l.ShowMore, o.ShowMore)
	setSlice(&l.EndOfList, o.EndOfList)
	setSlice(&l.Name, o.Name)
	setSlice(&l.Address, o.Address)
	setSlice(&l.Rating, o.Rating)
	setSlice(&l.Reviews, o.Reviews)
	setSlice(&l.Category, o.Category)
	setSlice(&l.Website, o.Website)
	setSlice(&l.Phone, o.Phone)
	setSlice(&l.PhoneText, o.PhoneText)
	setSlice(&l.WebsiteExclude, o.WebsiteExclude)
	setSlice(&l.ContactLink, o.ContactLink)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setSlice[T any](dst *[]T, v []T) {
	if len(v) > 0 {
		*dst = v
	}
}

// Validate checks that the contract can drive a run.
func (l *Locators) Validate() error {
	if l.BaseSearchURL == "" {
		return fmt.Errorf("base_search_url is required")
	}
	if len(l.Links) == 0 {
		return fmt.Errorf("at least one link locator is required")
	}
	if len(l.Name) == 0 {
		return fmt.Errorf("at least one name locator is required")
	}
	if _, err := regexp.Compile(l.PlacePattern); err != nil {
		return fmt.Errorf("place_pattern: %w", err)
	}
	for _, group := range [][]Locator{l.Consent, l.ResultIndicators, l.Links, l.ShowMore, l.Name, l.Address,
		l.Rating, l.Reviews, l.Category, l.Website, l.Phone, l.PhoneText, l.ContactLink} {
		for _, loc := range group {
			if loc.By != ByXPath && loc.By != ByCSS {
				return fmt.Errorf("locator %q: unknown strategy %q", loc.Query, loc.By)
			}
		}
	}
	return nil
}
