package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// BookingStatus is the closed set of states a booking can be in.
type BookingStatus int

const (
	BookingStatusUnknown BookingStatus = iota
	BookingStatusPending
	BookingStatusConfirmed
	BookingStatusInProgress
	BookingStatusCompleted
	BookingStatusCancelled
)

var bookingStatusNames = map[BookingStatus]string{
	BookingStatusUnknown:    "unknown",
	BookingStatusPending:    "pending",
	BookingStatusConfirmed:  "confirmed",
	BookingStatusInProgress: "in_progress",
	BookingStatusCompleted:  "completed",
	BookingStatusCancelled:  "cancelled",
}

// AllBookingStatuses lists every known status in lifecycle order.
func AllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusInProgress,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
}

func (s BookingStatus) String() string {
	if name, ok := bookingStatusNames[s]; ok {
		return name
	}
	return bookingStatusNames[BookingStatusUnknown]
}

// Valid reports whether s is one of the known lifecycle states.
func (s BookingStatus) Valid() bool {
	return s > BookingStatusUnknown && s <= BookingStatusCancelled
}

// ParseBookingStatus maps a stored status string onto the enum.
// Unrecognised values yield BookingStatusUnknown and an error.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for status, name := range bookingStatusNames {
		if status != BookingStatusUnknown && name == normalized {
			return status, nil
		}
	}
	return BookingStatusUnknown, fmt.Errorf("unknown booking status %q", raw)
}

func (s BookingStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *BookingStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s, _ = ParseBookingStatus(raw)
	return nil
}

func (s BookingStatus) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.String())
}

// UnmarshalBSONValue never fails; unrecognised values decode to BookingStatusUnknown.
func (s *BookingStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw string
	if err := bson.UnmarshalValue(t, data, &raw); err != nil {
		*s = BookingStatusUnknown
		return nil
	}
	*s, _ = ParseBookingStatus(raw)
	return nil
}
