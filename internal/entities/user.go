package entities

import (
	"strings"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Gate struct {
	ID         string `json:"id"`
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
}

// Spot carries two occupancy readings: the booking system's own status and
// the computer-vision-derived cvStatus. Both must read free before the spot
// can be offered.
type Spot struct {
	ID       string `json:"id"`
	GateID   string `json:"gateId"`
	Code     string `json:"code"`
	Status   string `json:"status"`
	CVStatus string `json:"cvStatus"`
}

func (s Spot) Free() bool {
	return strings.EqualFold(s.Status, "free") && strings.EqualFold(s.CVStatus, "free")
}

type Activity struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	ReservationID string    `json:"reservationId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
