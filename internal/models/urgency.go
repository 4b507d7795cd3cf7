package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Urgency is the clinical urgency of a referral. The set is closed: values
// only come from the constants below or from ParseUrgency.
type Urgency uint8

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCrisis
)

var urgencyNames = [...]string{
	UrgencyLow:    "low",
	UrgencyMedium: "medium",
	UrgencyHigh:   "high",
	UrgencyCrisis: "crisis",
}

// ParseUrgency converts the stored/wire form into an Urgency.
func ParseUrgency(s string) (Urgency, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range urgencyNames {
		if name == v {
			return Urgency(i), nil
		}
	}
	return UrgencyLow, fmt.Errorf("invalid urgency %q", s)
}

func (u Urgency) String() string {
	if int(u) < len(urgencyNames) {
		return urgencyNames[u]
	}
	return fmt.Sprintf("urgency(%d)", uint8(u))
}

func (u Urgency) MarshalText() ([]byte, error) {
	if int(u) >= len(urgencyNames) {
		return nil, fmt.Errorf("invalid urgency %d", uint8(u))
	}
	return []byte(urgencyNames[u]), nil
}

func (u *Urgency) UnmarshalText(text []byte) error {
	parsed, err := ParseUrgency(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Scan implements sql.Scanner for the referrals.urgency column.
func (u *Urgency) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return u.UnmarshalText([]byte(v))
	case []byte:
		return u.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Urgency", src)
	}
}

func (u Urgency) Value() (driver.Value, error) {
	b, err := u.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Modality is how the client prefers to attend sessions.
type Modality uint8

const (
	ModalityVideo Modality = iota
	ModalityPhone
	ModalityChat
	ModalityInPerson
)

var modalityNames = [...]string{
	ModalityVideo:    "video",
	ModalityPhone:    "phone",
	ModalityChat:     "chat",
	ModalityInPerson: "in_person",
}

func ParseModality(s string) (Modality, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range modalityNames {
		if name == v {
			return Modality(i), nil
		}
	}
	return ModalityVideo, fmt.Errorf("invalid modality %q", s)
}

func (m Modality) String() string {
	if int(m) < len(modalityNames) {
		return modalityNames[m]
	}
	return fmt.Sprintf("modality(%d)", uint8(m))
}

func (m Modality) MarshalText() ([]byte, error) {
	if int(m) >= len(modalityNames) {
		return nil, fmt.Errorf("invalid modality %d", uint8(m))
	}
	return []byte(modalityNames[m]), nil
}

func (m *Modality) UnmarshalText(text []byte) error {
	parsed, err := ParseModality(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m *Modality) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return m.UnmarshalText([]byte(v))
	case []byte:
		return m.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Modality", src)
	}
}

func (m Modality) Value() (driver.Value, error) {
	b, err := m.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
