package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"parkpass/internal/db"
	"parkpass/internal/entities"
	"parkpass/internal/errors"
	"parkpass/internal/repository"
)

const (
	admissionWindow  = 2 * time.Hour
	checkoutDeadline = 30 * time.Minute
	hourlyRateCents  = 500
	voucherValidity  = 90 * 24 * time.Hour
	refundPercentage = 100
)

type ReservationService struct {
	Store         *repository.Store
	stripeService *StripeService
	senderService *SenderService
}

func NewReservationService(store *repository.Store, stripeService *StripeService, senderService *SenderService) *ReservationService {
	return &ReservationService{
		Store:         store,
		stripeService: stripeService,
		senderService: senderService,
	}
}

type CreateResult struct {
	Reservation    *db.Reservation
	Session        *db.CheckoutSession
	Pricing        entities.Pricing
	AppliedVoucher *db.Voucher
}

func (s *ReservationService) CreateReservation(userID, locationID, gateID string) (*CreateResult, error) {
	if locationID == "" || gateID == "" {
		return nil, errors.ErrBadRequest("locationId and gateId are required")
	}

	location, err := s.Store.GetLocation(locationID)
	if err != nil {
		return nil, errors.ErrNotFound(err.Error())
	}
	gate, err := s.Store.GetGate(gateID)
	if err != nil {
		return nil, errors.ErrNotFound(err.Error())
	}
	if gate.LocationID != location.ID {
		return nil, errors.ErrBadRequest("gate does not belong to the chosen location")
	}
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return nil, errors.ErrNotFound("user not found")
	}

	now := time.Now().UTC()
	reservation := &db.Reservation{
		Status:     entities.StatusPending,
		ValidFrom:  now,
		ValidUntil: now.Add(admissionWindow),
		Location:   entities.EntityRef{ID: location.ID, Name: location.Name},
		Gate:       entities.EntityRef{ID: gate.ID, Name: gate.Name},
		UserID:     userID,
		Currency:   "eur",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.CreateReservation(reservation); err != nil {
		return nil, err
	}

	pricing := entities.Pricing{
		Amount:   int(admissionWindow.Hours()) * hourlyRateCents,
		Currency: reservation.Currency,
	}

	applied := s.pickVoucher(userID)
	if applied != nil {
		pricing.DiscountPercent = applied.Percentage
		pricing.Amount = pricing.Amount * (100 - applied.Percentage) / 100
		applied.ReservationID = reservation.ID
		if err := s.Store.UpdateVoucher(applied); err != nil {
			log.Printf("Could not earmark voucher %s: %v", applied.ID, err)
			applied = nil
		}
	}

	description := fmt.Sprintf("Parking at %s (%s)", location.Name, gate.Name)
	checkoutURL, sessionID, err := s.stripeService.CreateCheckoutSession(int64(pricing.Amount), pricing.Currency, description, user.Email)
	if err != nil {
		return nil, err
	}

	session := &db.CheckoutSession{
		ID:            sessionID,
		ReservationID: reservation.ID,
		URL:           checkoutURL,
		CreatedAt:     now,
	}
	if err := s.Store.CreateSession(session); err != nil {
		return nil, err
	}

	reservation.Amount = pricing.Amount
	reservation.SessionID = sessionID
	if applied != nil {
		reservation.AppliedVoucherID = applied.ID
	}
	if err := s.Store.UpdateReservation(reservation); err != nil {
		return nil, err
	}

	s.recordActivity(userID, "reservation_created", reservation.ID,
		fmt.Sprintf("Reserved a spot at %s, %s", location.Name, gate.Name))

	return &CreateResult{
		Reservation:    reservation,
		Session:        session,
		Pricing:        pricing,
		AppliedVoucher: applied,
	}, nil
}

// pickVoucher returns the user's best redeemable voucher: not spent, not
// expired, not earmarked for another reservation, highest percentage first
// with ties broken by listing order.
func (s *ReservationService) pickVoucher(userID string) *db.Voucher {
	now := time.Now().UTC()
	var best *db.Voucher
	for _, v := range s.Store.ListVouchersByUser(userID) {
		if v.Used || v.UsedAt != nil || v.ReservationID != "" {
			continue
		}
		if v.ExpiresAt != nil && !v.ExpiresAt.After(now) {
			continue
		}
		if best == nil || v.Percentage > best.Percentage {
			best = v
		}
	}
	return best
}

// ConfirmPayment is idempotent: once a reservation is confirmed, further calls
// return the same reservation with alreadyConfirmed set and trigger no side
// effects. While the checkout session is unpaid it fails with a 400, which
// polling clients treat as "not yet confirmed".
func (s *ReservationService) ConfirmPayment(userID, reservationID, sessionID string) (*db.Reservation, bool, error) {
	reservation, err := s.Store.GetReservation(reservationID)
	if err != nil {
		return nil, false, errors.ErrNotFound(err.Error())
	}
	if reservation.UserID != userID {
		return nil, false, errors.ErrForbidden("reservation belongs to another user")
	}
	if reservation.QRToken != "" {
		return reservation, true, nil
	}
	if reservation.Status.Terminal() {
		return nil, false, errors.ErrConflict(fmt.Sprintf("reservation is %s", strings.ToLower(string(reservation.Status))))
	}
	if sessionID == "" || sessionID != reservation.SessionID {
		return nil, false, errors.ErrBadRequest("unknown checkout session")
	}

	paid, err := s.stripeService.SessionPaid(sessionID)
	if err != nil {
		return nil, false, err
	}
	if !paid {
		return nil, false, errors.ErrBadRequest("payment not completed yet")
	}

	reservation.Status = entities.StatusConfirmed
	reservation.QRToken = uuid.NewString()
	if err := s.Store.UpdateReservation(reservation); err != nil {
		return nil, false, err
	}

	if reservation.AppliedVoucherID != "" {
		s.markVoucherUsed(reservation.AppliedVoucherID)
	}

	s.recordActivity(userID, "payment_confirmed", reservation.ID,
		fmt.Sprintf("Payment confirmed for %s", reservation.Location.Name))
	s.notify(userID, reservation, "confirmed")

	return reservation, false, nil
}

func (s *ReservationService) markVoucherUsed(voucherID string) {
	voucher, err := s.Store.GetVoucher(voucherID)
	if err != nil {
		log.Printf("Applied voucher %s not found: %v", voucherID, err)
		return
	}
	now := time.Now().UTC()
	voucher.Used = true
	voucher.UsedAt = &now
	if err := s.Store.UpdateVoucher(voucher); err != nil {
		log.Printf("Could not mark voucher %s used: %v", voucherID, err)
	}
}

// CancelReservation is legal only from PENDING, ACTIVE or CONFIRMED. When the
// reservation had been paid, the refund is issued as a voucher.
func (s *ReservationService) CancelReservation(userID, reservationID string) (*db.Reservation, error) {
	reservation, err := s.Store.GetReservation(reservationID)
	if err != nil {
		return nil, errors.ErrNotFound(err.Error())
	}
	if reservation.UserID != userID {
		return nil, errors.ErrForbidden("reservation belongs to another user")
	}
	switch reservation.Status {
	case entities.StatusPending, entities.StatusActive, entities.StatusConfirmed:
	default:
		return nil, errors.ErrConflict(fmt.Sprintf("cannot cancel a %s reservation", strings.ToLower(string(reservation.Status))))
	}

	paid := reservation.QRToken != ""
	now := time.Now().UTC()
	reservation.Status = entities.StatusCancelled
	reservation.CancelledAt = &now
	if err := s.Store.UpdateReservation(reservation); err != nil {
		return nil, err
	}

	// An earmarked but unspent voucher goes back into the pool.
	if reservation.AppliedVoucherID != "" && !paid {
		s.releaseVoucher(reservation.AppliedVoucherID)
	}

	if paid {
		expires := now.Add(voucherValidity)
		voucher := &db.Voucher{
			UserID:     userID,
			Code:       "PKR-" + strings.ToUpper(uuid.NewString()[:8]),
			Percentage: refundPercentage,
			ExpiresAt:  &expires,
			CreatedAt:  now,
		}
		if err := s.Store.CreateVoucher(voucher); err != nil {
			log.Printf("Could not issue refund voucher for reservation %s: %v", reservationID, err)
		} else {
			s.recordActivity(userID, "voucher_issued", reservation.ID,
				fmt.Sprintf("Voucher %s (%d%%) issued for cancelled reservation", voucher.Code, voucher.Percentage))
		}
	}

	s.recordActivity(userID, "reservation_cancelled", reservation.ID,
		fmt.Sprintf("Cancelled reservation at %s", reservation.Location.Name))
	s.notify(userID, reservation, "cancelled")

	return reservation, nil
}

func (s *ReservationService) releaseVoucher(voucherID string) {
	voucher, err := s.Store.GetVoucher(voucherID)
	if err != nil {
		return
	}
	if !voucher.Used && voucher.UsedAt == nil {
		voucher.ReservationID = ""
		if err := s.Store.UpdateVoucher(voucher); err != nil {
			log.Printf("Could not release voucher %s: %v", voucherID, err)
		}
	}
}

func (s *ReservationService) GetReservation(userID, reservationID string) (*db.Reservation, error) {
	reservation, err := s.Store.GetReservation(reservationID)
	if err != nil {
		return nil, errors.ErrNotFound(err.Error())
	}
	if reservation.UserID != userID {
		return nil, errors.ErrForbidden("reservation belongs to another user")
	}
	return reservation, nil
}

func (s *ReservationService) ListReservations(userID string) []*db.Reservation {
	return s.Store.ListReservationsByUser(userID)
}

func (s *ReservationService) ListVouchers(userID string) []*db.Voucher {
	return s.Store.ListVouchersByUser(userID)
}

func (s *ReservationService) recordActivity(userID, activityType, reservationID, message string) {
	s.Store.AppendActivity(&db.Activity{
		UserID:        userID,
		Type:          activityType,
		Message:       message,
		ReservationID: reservationID,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *ReservationService) ListActivities(userID, sortOrder string) []*db.Activity {
	return s.Store.ListActivitiesByUser(userID, sortOrder)
}

func (s *ReservationService) notify(userID string, reservation *db.Reservation, status string) {
	if s.senderService == nil {
		return
	}
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return
	}
	res := reservation.Entity()
	go s.senderService.SendReservationEmail(user.Email, user.FullName, res, status)
	go s.senderService.SendReservationSMS(res, status)
}
