package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPayload is returned when a payload carries neither or both of
// image and location.
var ErrInvalidPayload = errors.New("payload must carry exactly one of image or location")

// PayloadKind classifies an outgoing payload.
type PayloadKind string

const (
	PayloadImage    PayloadKind = "image"
	PayloadLocation PayloadKind = "location"
)

// Location is a longitude/latitude pair forwarded to the chat.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// String renders the location as "lat,lon", the order map services expect.
func (l Location) String() string {
	return fmt.Sprintf("%g,%g", l.Latitude, l.Longitude)
}

// Payload is the message handed to the parent chat's send callback.
// Exactly one of Image or Location is populated.
type Payload struct {
	Image    string    `json:"image,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// ImagePayload builds an image payload from a retrieval URL.
func ImagePayload(url string) Payload {
	return Payload{Image: url}
}

// LocationPayload builds a location payload.
func LocationPayload(longitude, latitude float64) Payload {
	return Payload{Location: &Location{Longitude: longitude, Latitude: latitude}}
}

// Kind reports which variant the payload carries. It is only meaningful on
// payloads that pass Validate.
func (p Payload) Kind() PayloadKind {
	if p.Location != nil {
		return PayloadLocation
	}
	return PayloadImage
}

// Validate checks the one-of invariant.
func (p Payload) Validate() error {
	hasImage := p.Image != ""
	hasLocation := p.Location != nil
	if hasImage == hasLocation {
		return ErrInvalidPayload
	}
	return nil
}

// Attachment represents a file or media attachment on a message.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// OutboundMessage is a message to be sent via a channel.
type OutboundMessage struct {
	ChannelID string       `json:"channelId"`
	To        string       `json:"to"`
	Body      string       `json:"body"`
	Media     []Attachment `json:"media,omitempty"`
	Location  *Location    `json:"location,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
