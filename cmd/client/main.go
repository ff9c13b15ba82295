package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeqown/go-qrcode"

	"parkpass/internal/client"
	"parkpass/internal/entities"
)

// Default server base URL; can override with PARKPASS_SERVER env var or --server flag.
var serverBaseURL = "http://localhost:8080"

func main() {
	godotenv.Load()

	cmd := flag.String("cmd", "", "Command: signup|login|logout|locations|gates|spots|reserve|confirm|watch|cancel|mine|vouchers|activities|qr")
	serverFlag := flag.String("server", "", "Override server base URL")
	name := flag.String("name", "", "Full name (signup)")
	email := flag.String("email", "", "Email (signup/login)")
	password := flag.String("password", "", "Password (signup/login)")
	locationID := flag.String("location", "", "Location ID (gates/reserve)")
	gateID := flag.String("gate", "", "Gate ID (spots/reserve)")
	reservationID := flag.String("id", "", "Reservation ID (confirm/watch/cancel/qr)")
	sessionID := flag.String("session", "", "Checkout session ID (confirm)")
	sortOrder := flag.String("sort", "newest", "Activity sort: newest|oldest")
	outFile := flag.String("out", "qr.jpeg", "Output image for the qr command")
	flag.Parse()

	if env := os.Getenv("PARKPASS_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	if *serverFlag != "" {
		serverBaseURL = strings.TrimRight(*serverFlag, "/")
	}

	credPath, err := client.DefaultCredentialPath()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	creds := client.NewCredentialStore(credPath)
	c := client.New(serverBaseURL, creds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, c, *cmd, flags{
		name: *name, email: *email, password: *password,
		locationID: *locationID, gateID: *gateID,
		reservationID: *reservationID, sessionID: *sessionID,
		sortOrder: *sortOrder, outFile: *outFile,
	}); err != nil {
		if client.IsAuthError(err) {
			fmt.Println("Session expired, please log in again.")
		} else {
			fmt.Println("Error:", err)
		}
		os.Exit(1)
	}
}

type flags struct {
	name, email, password    string
	locationID, gateID       string
	reservationID, sessionID string
	sortOrder, outFile       string
}

func run(ctx context.Context, c *client.Client, cmd string, f flags) error {
	switch cmd {
	case "signup":
		user, err := c.Signup(ctx, f.name, f.email, f.password, true)
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s! You are signed in.\n", user.FullName)
	case "login":
		user, err := c.Login(ctx, f.email, f.password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s <%s>.\n", user.FullName, user.Email)
	case "logout":
		if err := c.Credentials().Clear(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
	case "locations":
		locations, err := c.Locations(ctx)
		if err != nil {
			return err
		}
		for _, l := range locations {
			fmt.Printf("%-14s %s (%s)\n", l.ID, l.Name, l.Address)
		}
	case "gates":
		gates, err := c.Gates(ctx, f.locationID)
		if err != nil {
			return err
		}
		for _, g := range gates {
			fmt.Printf("%-20s %s\n", g.ID, g.Name)
		}
	case "spots":
		spots, err := c.Spots(ctx, f.gateID)
		if err != nil {
			return err
		}
		for _, s := range spots {
			state := "taken"
			if s.Free() {
				state = "free"
			}
			fmt.Printf("%-10s %-6s %s\n", s.ID, s.Code, state)
		}
	case "reserve":
		return reserve(ctx, c, f.locationID, f.gateID)
	case "confirm":
		return confirm(ctx, c, f.reservationID, f.sessionID)
	case "watch":
		return watch(ctx, c, f.reservationID)
	case "cancel":
		return cancel(ctx, c, f.reservationID)
	case "mine":
		reservations, err := c.MyReservations(ctx)
		if err != nil {
			return err
		}
		for _, r := range reservations {
			fmt.Printf("%-12s %-10s %s at %s, %s\n", r.ID, r.Status,
				r.ValidFrom.Local().Format("02 Jan 15:04"), r.Location.Name, r.Gate.Name)
		}
	case "vouchers":
		return vouchers(ctx, c)
	case "activities":
		activities, err := c.Activities(ctx, f.sortOrder)
		if err != nil {
			return err
		}
		for _, a := range activities {
			fmt.Printf("%s  %-24s %s\n", a.CreatedAt.Local().Format("02 Jan 15:04"), a.Type, a.Message)
		}
	case "qr":
		return exportQR(ctx, c, f.reservationID, f.outFile)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func reserve(ctx context.Context, c *client.Client, locationID, gateID string) error {
	lifecycle := client.NewLifecycle(c)
	reservation, session, err := lifecycle.Create(ctx, locationID, gateID)
	if err != nil {
		return err
	}
	fmt.Printf("Reservation %s created (%s).\n", reservation.ID, reservation.Status)
	fmt.Printf("Open the checkout page to pay:\n  %s\n", session.CheckoutURL)
	fmt.Println("Waiting for payment confirmation (Ctrl-C to stop)...")

	confirmed, err := client.NewPaymentPoller(lifecycle).Wait(ctx)
	if err != nil {
		if err == client.ErrPollTimeout {
			return fmt.Errorf("payment still not confirmed; run: parkpass -cmd confirm -id %s -session %s", reservation.ID, session.SessionID)
		}
		return err
	}
	fmt.Printf("Payment confirmed, reservation is %s. Show your QR at the gate.\n", confirmed.Status)
	return nil
}

func confirm(ctx context.Context, c *client.Client, reservationID, sessionID string) error {
	reservation, err := c.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	lifecycle := client.NewLifecycle(c)
	lifecycle.Track(reservation)
	if sessionID != "" {
		lifecycle.ResumeCheckout(&entities.CheckoutSession{ReservationID: reservationID, SessionID: sessionID})
	}
	confirmed, err := client.NewPaymentPoller(lifecycle).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Reservation %s is %s.\n", confirmed.ID, confirmed.Status)
	return nil
}

// watch polls the reservation and prints the derived QR display state until
// the section is suppressed or the context is cancelled.
func watch(ctx context.Context, c *client.Client, reservationID string) error {
	reservation, err := c.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	lifecycle := client.NewLifecycle(c)
	lifecycle.Track(reservation)
	tracker := client.NewQRTracker()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		snapshot, justConsumed := tracker.Observe(lifecycle.Reservation())
		if justConsumed {
			fmt.Println("QR code scanned at the gate!")
		}
		switch snapshot.State {
		case client.QRActive:
			fmt.Printf("QR %-9s token %s\n", snapshot.State, snapshot.Token)
		case client.QRConsumed:
			fmt.Printf("QR %-9s (hidden in %s)\n", snapshot.State, snapshot.NextChange.Round(time.Second))
		case client.QRExpired:
			fmt.Printf("QR %-9s admission window is over\n", snapshot.State)
		case client.QRHidden:
			fmt.Println("QR section hidden.")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if _, err := lifecycle.Refresh(ctx); err != nil {
			if client.IsAuthError(err) {
				return err
			}
			fmt.Println("refresh failed, retrying:", err)
		}
	}
}

func cancel(ctx context.Context, c *client.Client, reservationID string) error {
	reservation, err := c.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	lifecycle := client.NewLifecycle(c)
	lifecycle.Track(reservation)
	lifecycle.VouchersStale = func() {
		fmt.Println("A voucher may have been issued; check -cmd vouchers.")
	}
	cancelled, err := lifecycle.Cancel(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Reservation %s cancelled at %s.\n", cancelled.ID, cancelled.CancelledAt.Local().Format("15:04:05"))
	return nil
}

func vouchers(ctx context.Context, c *client.Client) error {
	all, err := c.Vouchers(ctx)
	if err != nil {
		return err
	}
	reservations, err := c.MyReservations(ctx)
	if err != nil {
		return err
	}
	eligible := client.EligibleVouchers(all, client.ActiveReservationIDs(reservations), time.Now())
	if len(eligible) == 0 {
		fmt.Println("No redeemable vouchers.")
		return nil
	}
	for _, v := range eligible {
		expiry := "never expires"
		if v.ExpiresAt != nil {
			expiry = "expires " + v.ExpiresAt.Local().Format("02 Jan 2006")
		}
		fmt.Printf("%-14s %3d%%  %s\n", v.Code, v.Percentage, expiry)
	}
	if best, ok := client.BestVoucher(all, client.ActiveReservationIDs(reservations), time.Now()); ok {
		fmt.Printf("Best pick: %s (%d%%)\n", best.Code, best.Percentage)
	}
	return nil
}

func exportQR(ctx context.Context, c *client.Client, reservationID, outFile string) error {
	reservation, err := c.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	snapshot := client.DeriveQRState(reservation, time.Now())
	if snapshot.State != client.QRActive {
		return fmt.Errorf("QR is %s, nothing to export", snapshot.State)
	}
	qrc, err := qrcode.New(snapshot.Token)
	if err != nil {
		return fmt.Errorf("building qr image: %w", err)
	}
	if err := qrc.Save(outFile); err != nil {
		return fmt.Errorf("saving qr image: %w", err)
	}
	fmt.Printf("QR code written to %s\n", outFile)
	return nil
}
