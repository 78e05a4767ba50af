package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store with the same error semantics as PgStore,
// including the atomic CAS on status and the per-appointment donation
// uniqueness.
type memStore struct {
	mu           sync.Mutex
	donors       map[uuid.UUID]*Donor
	branches     map[uuid.UUID]*Branch
	campaigns    map[uuid.UUID]*Campaign
	appointments map[uuid.UUID]*Appointment
	donations    map[uuid.UUID]*DonationRecord // keyed by appointment id
	events       []EventLog

	failAddCampaignVolume error
}

func newMemStore() *memStore {
	return &memStore{
		donors:       make(map[uuid.UUID]*Donor),
		branches:     make(map[uuid.UUID]*Branch),
		campaigns:    make(map[uuid.UUID]*Campaign),
		appointments: make(map[uuid.UUID]*Appointment),
		donations:    make(map[uuid.UUID]*DonationRecord),
	}
}

func (m *memStore) addDonor(d Donor) *Donor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.donors[d.ID] = &d
	return &d
}

func (m *memStore) addBranch(b Branch) *Branch {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	m.branches[b.ID] = &b
	return &b
}

func (m *memStore) addCampaign(c Campaign) *Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.campaigns[c.ID] = &c
	return &c
}

func (m *memStore) GetDonorByID(_ context.Context, id uuid.UUID) (*Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[id]
	if !ok {
		return nil, NewNotFound("donor not found")
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) GetBranchByID(_ context.Context, id uuid.UUID) (*Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[id]
	if !ok {
		return nil, NewNotFound("branch not found")
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) GetCampaignByID(_ context.Context, id uuid.UUID) (*Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, NewNotFound("campaign not found")
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, NewNotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateAppointment(_ context.Context, p NewAppointmentParams) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	a := Appointment{
		ID:           uuid.New(),
		DonorID:      p.DonorID,
		BranchID:     p.BranchID,
		CampaignID:   p.CampaignID,
		ScheduledAt:  p.ScheduledAt.UTC(),
		DonationType: p.DonationType,
		Status:       StatusPending,
		Notes:        p.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.appointments[a.ID] = &a
	cp := a
	return &cp, nil
}

func (m *memStore) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, NewNotFound("appointment not found")
	}
	for _, st := range from {
		if a.Status == st {
			a.Status = to
			a.UpdatedAt = time.Now().UTC()
			cp := *a
			return &cp, nil
		}
	}
	return nil, NewInvalidState("appointment cannot move to " + string(to) + " from " + string(a.Status))
}

func (m *memStore) ListAppointmentsByDonor(_ context.Context, donorID uuid.UUID, f AppointmentFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.DonorID != donorID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.FromDate != nil && a.ScheduledAt.Before(*f.FromDate) {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledAt.After(result[j].ScheduledAt) })
	return result, nil
}

func (m *memStore) ListAppointmentsByBranch(_ context.Context, branchID uuid.UUID, f AppointmentFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.BranchID != branchID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.FromDate != nil && a.ScheduledAt.Before(*f.FromDate) {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledAt.Before(result[j].ScheduledAt) })
	return result, nil
}

func (m *memStore) FindPendingOnDay(_ context.Context, donorID, branchID uuid.UUID, day time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.DonorID == donorID && a.BranchID == branchID && a.Status == StatusPending && sameUTCDate(a.ScheduledAt, day) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memStore) FindOverdue(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Appointment
	for _, a := range m.appointments {
		if (a.Status == StatusPending || a.Status == StatusConfirmed) && a.ScheduledAt.Before(cutoff) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memStore) GetDonationByAppointment(_ context.Context, appointmentID uuid.UUID) (*DonationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.donations[appointmentID]
	if !ok {
		return nil, NewNotFound("donation record not found")
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) InsertDonation(_ context.Context, p NewDonationParams) (*DonationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.donations[p.AppointmentID]; exists {
		return nil, NewConflict("donation already recorded for this appointment")
	}

	r := DonationRecord{
		ID:               uuid.New(),
		DonorID:          p.DonorID,
		BranchID:         p.BranchID,
		AppointmentID:    p.AppointmentID,
		VolumeML:         p.VolumeML,
		DonationType:     p.DonationType,
		DonationDate:     p.DonationDate,
		NextEligibleDate: p.NextEligibleDate,
		Notes:            p.Notes,
		CreatedAt:        time.Now().UTC(),
	}
	m.donations[p.AppointmentID] = &r
	cp := r
	return &cp, nil
}

func (m *memStore) ListDonationsByDonor(_ context.Context, donorID uuid.UUID) ([]DonationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []DonationRecord
	for _, r := range m.donations {
		if r.DonorID == donorID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DonationDate.After(result[j].DonationDate) })
	return result, nil
}

func (m *memStore) LastFulfilledDonation(_ context.Context, donorID uuid.UUID) (*DonationRecord, error) {
	records, _ := m.ListDonationsByDonor(context.Background(), donorID)
	if len(records) == 0 {
		return nil, NewNotFound("donation record not found")
	}
	cp := records[0]
	return &cp, nil
}

func (m *memStore) AddCampaignVolume(_ context.Context, campaignID uuid.UUID, liters float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAddCampaignVolume != nil {
		return m.failAddCampaignVolume
	}
	c, ok := m.campaigns[campaignID]
	if !ok {
		return NewNotFound("campaign not found")
	}
	c.CollectedLiters += liters
	return nil
}

func (m *memStore) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, ev := range m.events {
		types[i] = ev.EventType
	}
	return types
}
