package service

import (
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"parkpass/internal/entities"
)

// SenderService delivers reservation notifications. Email and SMS are each
// skipped with a log line when their provider credentials are absent, so the
// reference backend runs fine without any account.
type SenderService struct{}

func NewSenderService() *SenderService {
	return &SenderService{}
}

func (s *SenderService) SendReservationEmail(toEmail, userName string, reservation entities.Reservation, status string) {
	subject := fmt.Sprintf("Your ParkPass reservation is %s", status)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour reservation at %s (%s) is %s.\n\n"+
			"Reservation: %s\n"+
			"Valid from: %s\n"+
			"Valid until: %s\n\n"+
			"Thank you for choosing ParkPass.",
		userName, reservation.Location.Name, reservation.Gate.Name, status,
		reservation.ID,
		reservation.ValidFrom.Format("02 Jan 2006 15:04 MST"),
		reservation.ValidUntil.Format("02 Jan 2006 15:04 MST"),
	)

	if err := sendEmailWithSendGrid(toEmail, userName, subject, body); err != nil {
		log.Printf("Could not send email for reservation %s: %v", reservation.ID, err)
	}
}

func (s *SenderService) SendReservationSMS(reservation entities.Reservation, status string) {
	message := fmt.Sprintf("ParkPass: reservation %s at %s is %s. Valid until %s.",
		reservation.ID, reservation.Location.Name, status,
		reservation.ValidUntil.Format("02/01 15:04"))

	if err := sendSMS(os.Getenv("NOTIFY_PHONE_NUMBER"), message); err != nil {
		log.Printf("Could not send SMS for reservation %s: %v", reservation.ID, err)
	}
}

func sendEmailWithSendGrid(toEmail, toName, subject, plainText string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		log.Printf("SENDGRID_API_KEY not set, skipping email to %s", toEmail)
		return nil
	}

	from := mail.NewEmail(os.Getenv("SENDGRID_FROM_NAME"), os.Getenv("SENDGRID_FROM_EMAIL"))
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, "")

	client := sendgrid.NewSendClient(apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

func sendSMS(to, message string) error {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")
	if accountSid == "" || to == "" {
		log.Printf("Twilio not configured, skipping SMS")
		return nil
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(fromNumber)
	params.SetBody(message)

	_, err := client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
