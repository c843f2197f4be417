package bbdc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CaptchaKind selects which captcha endpoint a challenge comes from. Booking
// captchas require an authenticated session, login captchas do not.
type CaptchaKind string

const (
	CaptchaLogin   CaptchaKind = "login"
	CaptchaBooking CaptchaKind = "booking"
)

// Challenge is one server-issued captcha bundle: the decoded image bytes plus
// the opaque fields that must be echoed back verbatim on the next submission.
// The fields are capability tickets, never interpreted locally.
type Challenge struct {
	Image  []byte
	Fields map[string]any
}

// Auth carries the two headers authenticated calls need.
type Auth struct {
	Bearer     string
	JSessionID string
}

// Slot is one bookable practical-lesson unit as the service returns it. The
// encrypted booking tokens must be forwarded unmodified when booking.
type Slot struct {
	SlotID             json.Number `json:"slotId"`
	SlotIDEnc          string      `json:"slotIdEnc"`
	BookingProgressEnc string      `json:"bookingProgressEnc"`
	SlotRefName        string      `json:"slotRefName"`
	SlotRefDate        string      `json:"slotRefDate"`
	StartTime          string      `json:"startTime"`
	EndTime            string      `json:"endTime"`
	TotalFee           json.Number `json:"totalFee"`
}

// SlotCollection groups released slots by calendar day, one query month at a
// time.
type SlotCollection map[string][]Slot

// SessionNumber extracts the numeric part of a "Session N" label.
func (s Slot) SessionNumber() (int, bool) {
	fields := strings.Fields(s.SlotRefName)
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// BookingPayload builds the operation-specific fields for booking this slot.
// It is merged with the captcha answer and challenge fields at submit time.
func (s Slot) BookingPayload(courseType string) map[string]any {
	return map[string]any{
		"courseType": courseType,
		"slotIdList": []json.Number{s.SlotID},
		"encryptSlotList": []map[string]string{{
			"slotIdEnc":          s.SlotIDEnc,
			"bookingProgressEnc": s.BookingProgressEnc,
		}},
		"insInstructorId": "",
		"subVehicleType":  nil,
		"instructorType":  "",
	}
}

// LoginResult is the outcome of one login submission. Success false is a
// normal captcha rejection, not an error.
type LoginResult struct {
	Success     bool
	Message     string
	BearerToken string
}

// SessionContext is the second-stage session state fetched after login.
type SessionContext struct {
	AuthToken  string
	CourseType string
}

// BookResult is the outcome of one booking submission.
type BookResult struct {
	Success bool
	Message string
}
