package service

import (
	"fmt"
	"time"

	"parkpass/internal/entities"
)

// ScanResult is what the gate scanner learns about a QR validation attempt.
type ScanResult struct {
	Valid      bool
	Message    string
	GateAccess string
}

// ConsumeQR redeems a QR token at a gate. A token is consumed at most once:
// the first valid scan sets consumedAt and admits the reservation; every
// later scan is rejected.
func (s *ReservationService) ConsumeQR(qrToken, gateID, guardID string) (*ScanResult, error) {
	if qrToken == "" {
		return &ScanResult{Message: "missing qr token"}, nil
	}

	reservation, err := s.Store.GetReservationByQRToken(qrToken)
	if err != nil {
		return &ScanResult{Message: "unknown or revoked code"}, nil
	}

	now := time.Now().UTC()
	switch {
	case reservation.Status == entities.StatusCancelled || reservation.CancelledAt != nil:
		return &ScanResult{Message: "reservation was cancelled"}, nil
	case reservation.ConsumedAt != nil:
		return &ScanResult{Message: "code already used"}, nil
	case now.Before(reservation.ValidFrom):
		return &ScanResult{Message: "admission window has not started"}, nil
	case now.After(reservation.ValidUntil):
		return &ScanResult{Message: "admission window is over"}, nil
	case gateID != "" && gateID != reservation.Gate.ID:
		return &ScanResult{Message: fmt.Sprintf("code is valid for gate %s only", reservation.Gate.Name)}, nil
	}

	reservation.ConsumedAt = &now
	reservation.Status = entities.StatusActive
	if err := s.Store.UpdateReservation(reservation); err != nil {
		return nil, err
	}

	s.recordActivity(reservation.UserID, "qr_consumed", reservation.ID,
		fmt.Sprintf("Admitted at %s by guard %s", reservation.Gate.Name, guardID))

	return &ScanResult{
		Valid:      true,
		Message:    "access granted",
		GateAccess: reservation.Gate.Name,
	}, nil
}
