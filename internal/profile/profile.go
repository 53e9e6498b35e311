// Package profile defines the normalized user profile shared by every
// provider adapter, plus the rules that map a provider's raw attribute
// bag into that fixed shape.
//
// Providers release attributes under axschema-style dotted paths
// (e.g. "contact/email"). Adapters collect whatever the provider was
// willing to give into an AttributeBag and hand it to Normalize; the
// rest of the system only ever sees UserProfile.
package profile

import "strings"

// AttributeBag is the raw attribute set released by a provider, keyed by
// dotted attribute path. Lookups are total: a missing key reads as "".
type AttributeBag map[string]string

// Get returns the value for path, or "" when the provider did not
// release it.
func (b AttributeBag) Get(path string) string {
	if b == nil {
		return ""
	}
	return b[path]
}

// Set stores a value. A nil bag is a programming error; callers build
// bags with make or literals.
func (b AttributeBag) Set(path, value string) {
	b[path] = value
}

// UserProfile is the normalized record persisted after a successful
// login. All fields default to empty; none is recomputed once stored.
type UserProfile struct {
	Identifier  string `json:"identifier"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	Language    string `json:"language"`
	Country     string `json:"country"`
	Zip         string `json:"zip"`
	PhotoURL    string `json:"photo_url"`
	BirthDay    string `json:"birth_day"`
	BirthMonth  string `json:"birth_month"`
	BirthYear   string `json:"birth_year"`
}

// RequestedAttributes is the fixed alias list asked of the provider at
// begin time. Removing an entry changes which profile fields can ever
// be populated, so adapters must request the list as-is.
func RequestedAttributes() []string {
	return []string{
		"namePerson/first",
		"namePerson/last",
		"namePerson/friendly",
		"namePerson",
		"contact/email",
		"birthDate",
		"birthDate/birthDay",
		"birthDate/birthMonth",
		"birthDate/birthYear",
		"person/gender",
		"pref/language",
		"contact/postalCode/home",
		"contact/city/home",
		"contact/country/home",
		"media/image/default",
	}
}

// Normalize maps a raw attribute bag into a UserProfile. identifier is
// the provider-verified identity (claimed identifier for OpenID, the
// provider's user id for OAuth1).
func Normalize(bag AttributeBag, identifier string) *UserProfile {
	p := &UserProfile{
		Identifier: identifier,
		FirstName:  bag.Get("namePerson/first"),
		LastName:   bag.Get("namePerson/last"),
		Email:      bag.Get("contact/email"),
		Language:   bag.Get("pref/language"),
		Country:    bag.Get("contact/country/home"),
		Zip:        bag.Get("contact/postalCode/home"),
		PhotoURL:   bag.Get("media/image/default"),
		BirthDay:   bag.Get("birthDate/birthDay"),
		BirthMonth: bag.Get("birthDate/birthMonth"),
		BirthYear:  birthYear(bag),
	}

	p.Gender = normalizeGender(bag.Get("person/gender"))
	p.DisplayName = displayName(bag, p.FirstName, p.LastName)

	return p
}

// birthYear prefers the birthDate/birthYear component. Some providers
// only release the composite birthDate value, so that is the fallback.
func birthYear(bag AttributeBag) string {
	if y := bag.Get("birthDate/birthYear"); y != "" {
		return y
	}
	return bag.Get("birthDate")
}

// normalizeGender lower-cases the raw value and expands the common
// single-letter forms. Anything else passes through lower-cased.
func normalizeGender(raw string) string {
	g := strings.ToLower(raw)
	switch g {
	case "f":
		return "female"
	case "m":
		return "male"
	}
	return g
}

// displayName resolves the display name, first non-empty wins:
// full name, friendly name, then "first last".
func displayName(bag AttributeBag, first, last string) string {
	if v := bag.Get("namePerson"); v != "" {
		return v
	}
	if v := bag.Get("namePerson/friendly"); v != "" {
		return v
	}
	return strings.TrimSpace(first + " " + last)
}
