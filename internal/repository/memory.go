package repository

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"parkpass/internal/db"
	"parkpass/internal/entities"
)

// Store is an in-memory repository guarding all server state behind a single
// RWMutex. It exists so the reference backend needs no external database;
// everything observable through the HTTP contract lives here.
type Store struct {
	mu           sync.RWMutex
	users        map[string]*db.User
	usersByEmail map[string]string
	reservations map[string]*db.Reservation
	vouchers     map[string]*db.Voucher
	sessions     map[string]*db.CheckoutSession
	activities   []*db.Activity
	locations    []entities.Location
	gates        []entities.Gate
	spots        []entities.Spot
	seq          int
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]*db.User),
		usersByEmail: make(map[string]string),
		reservations: make(map[string]*db.Reservation),
		vouchers:     make(map[string]*db.Voucher),
		sessions:     make(map[string]*db.CheckoutSession),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%06d", prefix, s.seq)
}

// Users

func (s *Store) CreateUser(u *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return fmt.Errorf("email %s already registered", u.Email)
	}
	if u.ID == "" {
		u.ID = s.nextID("usr")
	}
	s.users[u.ID] = u
	s.usersByEmail[key] = u.ID
	return nil
}

func (s *Store) GetUser(id string) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(email string) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("no user with email %s", email)
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) UpdateUser(u *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user %s not found", u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// Reservations

func (s *Store) CreateReservation(r *db.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.nextID("res")
	}
	cp := *r
	s.reservations[r.ID] = &cp
	return nil
}

func (s *Store) GetReservation(id string) (*db.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetReservationByQRToken(token string) (*db.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.QRToken != "" && r.QRToken == token {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no reservation for qr token")
}

func (s *Store) UpdateReservation(r *db.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return fmt.Errorf("reservation %s not found", r.ID)
	}
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	s.reservations[r.ID] = &cp
	return nil
}

// ListReservationsByUser returns the user's reservations sorted newest-first.
func (s *Store) ListReservationsByUser(userID string) []*db.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*db.Reservation
	for _, r := range s.reservations {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// AllReservations returns a snapshot of every reservation, for sweep jobs.
func (s *Store) AllReservations() []*db.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*db.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// Checkout sessions

func (s *Store) CreateSession(cs *db.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cs
	s.sessions[cs.ID] = &cp
	return nil
}

func (s *Store) GetSession(id string) (*db.CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("checkout session %s not found", id)
	}
	cp := *cs
	return &cp, nil
}

func (s *Store) MarkSessionPaid(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("checkout session %s not found", id)
	}
	cs.Paid = true
	return nil
}

// Vouchers

func (s *Store) CreateVoucher(v *db.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = s.nextID("vch")
	}
	cp := *v
	s.vouchers[v.ID] = &cp
	return nil
}

func (s *Store) GetVoucher(id string) (*db.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vouchers[id]
	if !ok {
		return nil, fmt.Errorf("voucher %s not found", id)
	}
	cp := *v
	return &cp, nil
}

func (s *Store) UpdateVoucher(v *db.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vouchers[v.ID]; !ok {
		return fmt.Errorf("voucher %s not found", v.ID)
	}
	cp := *v
	s.vouchers[v.ID] = &cp
	return nil
}

func (s *Store) ListVouchersByUser(userID string) []*db.Voucher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*db.Voucher
	for _, v := range s.vouchers {
		if v.UserID == userID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Activities

func (s *Store) AppendActivity(a *db.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.nextID("act")
	}
	s.activities = append(s.activities, a)
}

// ListActivitiesByUser returns only the given user's feed. The feed records
// reservation IDs, so it is never served across users.
func (s *Store) ListActivitiesByUser(userID, sortOrder string) []*db.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*db.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	if sortOrder == "oldest" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// Static parking topology

func (s *Store) SeedTopology(locations []entities.Location, gates []entities.Gate, spots []entities.Spot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = locations
	s.gates = gates
	s.spots = spots
}

func (s *Store) Locations() []entities.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Location, len(s.locations))
	copy(out, s.locations)
	return out
}

func (s *Store) GetLocation(id string) (*entities.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.locations {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("location %s not found", id)
}

func (s *Store) GatesByLocation(locationID string) []entities.Gate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Gate
	for _, g := range s.gates {
		if g.LocationID == locationID {
			out = append(out, g)
		}
	}
	return out
}

func (s *Store) GetGate(id string) (*entities.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.gates {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, fmt.Errorf("gate %s not found", id)
}

func (s *Store) SpotsByGate(gateID string) []entities.Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Spot
	for _, sp := range s.spots {
		if sp.GateID == gateID {
			out = append(out, sp)
		}
	}
	return out
}
