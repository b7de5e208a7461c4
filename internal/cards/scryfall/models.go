package scryfall

import (
	"errors"
	"fmt"
	"time"
)

// Card is the subset of a Scryfall card object kept in the catalog.
type Card struct {
	ID              string            `json:"id"`
	CardmarketID    *int              `json:"cardmarket_id,omitempty"`
	Name            string            `json:"name"`
	Layout          string            `json:"layout"`
	URI             string            `json:"uri"`
	ScryfallURI     string            `json:"scryfall_uri"`
	ManaCost        *string           `json:"mana_cost,omitempty"`
	ColorIdentity   []string          `json:"color_identity"`
	SetCode         string            `json:"set"`
	SetName         string            `json:"set_name"`
	CollectorNumber string            `json:"collector_number"`
	Rarity          string            `json:"rarity"`
	Digital         bool              `json:"digital"`
	Legalities      map[string]string `json:"legalities"`
	ImageURIs       *ImageURIs        `json:"image_uris,omitempty"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name      string     `json:"name"`
	ManaCost  string     `json:"mana_cost,omitempty"`
	ImageURIs *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small      string `json:"small"`
	Normal     string `json:"normal"`
	Large      string `json:"large"`
	PNG        string `json:"png"`
	ArtCrop    string `json:"art_crop"`
	BorderCrop string `json:"border_crop"`
}

// SmallImageURI returns the small image of the card. Transforming and modal
// double-faced cards carry images per face; the front face is used.
func (c *Card) SmallImageURI() *string {
	if c.ImageURIs != nil && c.ImageURIs.Small != "" {
		uri := c.ImageURIs.Small
		return &uri
	}
	switch c.Layout {
	case "transform", "modal_dfc":
		if len(c.CardFaces) > 0 && c.CardFaces[0].ImageURIs != nil && c.CardFaces[0].ImageURIs.Small != "" {
			uri := c.CardFaces[0].ImageURIs.Small
			return &uri
		}
	}
	return nil
}

// BulkDataList represents the list of bulk data files.
type BulkDataList struct {
	Object  string     `json:"object"`
	HasMore bool       `json:"has_more"`
	Data    []BulkData `json:"data"`
}

// BulkData represents a bulk data file download.
type BulkData struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	UpdatedAt       time.Time `json:"updated_at"`
	Name            string    `json:"name"`
	Size            int64     `json:"size"`
	DownloadURI     string    `json:"download_uri"`
	ContentType     string    `json:"content_type"`
	ContentEncoding string    `json:"content_encoding"`
}

// Find returns the bulk file of the given type, such as "default_cards".
func (l *BulkDataList) Find(typ string) (*BulkData, bool) {
	for i := range l.Data {
		if l.Data[i].Type == typ {
			return &l.Data[i], true
		}
	}
	return nil, false
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StatusError reports an unexpected HTTP status of a plain download.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Status)
}
