package events

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PlaceholderPrefix marks the frontend's stand-in image, which is never
// processed.
const PlaceholderPrefix = "/placeholder.svg"

func (e GameEvent) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.GameID, validation.Required, validation.Min(int64(1))),
		validation.Field(&e.Action, validation.Required, validation.In(ActionCreate, ActionUpdate, ActionDelete, ActionProcess)),
	)
}

func (m CustomMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Type, validation.Required, validation.In(KindCustom)),
		validation.Field(&m.Message, validation.Required),
	)
}

func (j ImageJob) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.GameID, validation.Required, validation.Min(int64(1))),
		validation.Field(&j.ImageURL, validation.By(imageLocation)),
	)
}

func (j EnrichmentJob) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.GameID, validation.Required, validation.Min(int64(1))),
		validation.Field(&j.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&j.Developer, validation.Length(0, 500)),
	)
}

// HasImage reports whether the job names a real image to download.
func (j ImageJob) HasImage() bool {
	if j.ImageURL == nil {
		return false
	}
	u := strings.TrimSpace(*j.ImageURL)
	return u != "" && !strings.HasPrefix(u, PlaceholderPrefix)
}

// imageLocation accepts nil, empty, the placeholder or an absolute http(s)
// URL.
func imageLocation(value interface{}) error {
	p, _ := value.(*string)
	if p == nil {
		return nil
	}
	raw := strings.TrimSpace(*p)
	if raw == "" || strings.HasPrefix(raw, PlaceholderPrefix) {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
}
