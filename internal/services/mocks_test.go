package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"lifeline/internal/models"
	"lifeline/internal/repositories/interfaces"
	"lifeline/internal/utils"
	"lifeline/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	log.SetOutput(io.Discard)
	return log
}

var errBackendDown = errors.New("backend down")

// failingAmbulanceRepo errors on every call, forcing fallback paths.
type failingAmbulanceRepo struct{}

func (r *failingAmbulanceRepo) Create(context.Context, *models.Ambulance) error {
	return errBackendDown
}
func (r *failingAmbulanceRepo) GetByID(context.Context, primitive.ObjectID) (*models.Ambulance, error) {
	return nil, errBackendDown
}
func (r *failingAmbulanceRepo) Update(context.Context, primitive.ObjectID, map[string]interface{}) error {
	return errBackendDown
}
func (r *failingAmbulanceRepo) List(context.Context) ([]*models.Ambulance, error) {
	return nil, errBackendDown
}
func (r *failingAmbulanceRepo) GetNearbyIdle(context.Context, float64, float64, float64, int) ([]*models.Ambulance, error) {
	return nil, errBackendDown
}
func (r *failingAmbulanceRepo) UpdateLocation(context.Context, primitive.ObjectID, models.Location) error {
	return errBackendDown
}
func (r *failingAmbulanceRepo) Claim(context.Context, primitive.ObjectID, primitive.ObjectID) (*models.Ambulance, error) {
	return nil, errBackendDown
}
func (r *failingAmbulanceRepo) TransitionStatus(context.Context, primitive.ObjectID, models.AmbulanceStatus, models.AmbulanceStatus, map[string]interface{}) (*models.Ambulance, error) {
	return nil, errBackendDown
}
func (r *failingAmbulanceRepo) CountByStatus(context.Context, models.AmbulanceStatus) (int64, error) {
	return 0, errBackendDown
}

type failingHospitalRepo struct{}

func (r *failingHospitalRepo) Create(context.Context, *models.Hospital) error {
	return errBackendDown
}
func (r *failingHospitalRepo) GetByID(context.Context, primitive.ObjectID) (*models.Hospital, error) {
	return nil, errBackendDown
}
func (r *failingHospitalRepo) Update(context.Context, primitive.ObjectID, map[string]interface{}) error {
	return errBackendDown
}
func (r *failingHospitalRepo) List(context.Context, bool) ([]*models.Hospital, error) {
	return nil, errBackendDown
}
func (r *failingHospitalRepo) GetNearby(context.Context, float64, float64, float64, int, []primitive.ObjectID) ([]*models.Hospital, error) {
	return nil, errBackendDown
}
func (r *failingHospitalRepo) SetAvailability(context.Context, primitive.ObjectID, bool) error {
	return errBackendDown
}
func (r *failingHospitalRepo) AddBloodAlert(context.Context, primitive.ObjectID, *models.BloodAlert) error {
	return errBackendDown
}
func (r *failingHospitalRepo) RespondBloodAlert(context.Context, primitive.ObjectID, string, models.BloodAlertStatus, string) (*models.BloodAlert, error) {
	return nil, errBackendDown
}
func (r *failingHospitalRepo) DecrementBloodInventory(context.Context, primitive.ObjectID, models.BloodType, float64) error {
	return errBackendDown
}

// memAmbulanceRepo is an in-memory AmbulanceRepository with the same
// conditional-write semantics as the MongoDB implementation.
type memAmbulanceRepo struct {
	mu    sync.Mutex
	units map[primitive.ObjectID]*models.Ambulance
}

func newMemAmbulanceRepo(units ...*models.Ambulance) *memAmbulanceRepo {
	r := &memAmbulanceRepo{units: make(map[primitive.ObjectID]*models.Ambulance)}
	for _, u := range units {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.units[u.ID] = u
	}
	return r
}

func (r *memAmbulanceRepo) Create(_ context.Context, a *models.Ambulance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.units[a.ID] = a
	return nil
}

func (r *memAmbulanceRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.units[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAmbulanceRepo) Update(_ context.Context, id primitive.ObjectID, _ map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; !ok {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *memAmbulanceRepo) List(_ context.Context) ([]*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Ambulance, 0, len(r.units))
	for _, a := range r.units {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memAmbulanceRepo) GetNearbyIdle(_ context.Context, _, _, _ float64, limit int) ([]*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Ambulance, 0)
	for _, a := range r.units {
		if a.Status == models.AmbulanceStatusIdle {
			cp := *a
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memAmbulanceRepo) UpdateLocation(_ context.Context, id primitive.ObjectID, loc models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.units[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	a.CurrentLocation = &loc
	return nil
}

func (r *memAmbulanceRepo) Claim(_ context.Context, id, incidentID primitive.ObjectID) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.units[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if a.Status != models.AmbulanceStatusIdle {
		return nil, interfaces.ErrConflict
	}
	a.Status = models.AmbulanceStatusDispatched
	a.CurrentIncidentID = &incidentID
	a.Version++
	cp := *a
	return &cp, nil
}

func (r *memAmbulanceRepo) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.AmbulanceStatus, updates map[string]interface{}) (*models.Ambulance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.units[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	if a.Status != from {
		return nil, interfaces.ErrConflict
	}
	a.Status = to
	a.Version++
	if hid, ok := updates["current_hospital_id"].(primitive.ObjectID); ok {
		a.CurrentHospitalID = &hid
	}
	if _, ok := updates["current_incident_id"]; ok && updates["current_incident_id"] == nil {
		a.CurrentIncidentID = nil
		a.CurrentHospitalID = nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAmbulanceRepo) CountByStatus(_ context.Context, status models.AmbulanceStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.units {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

type memHospitalRepo struct {
	mu        sync.Mutex
	hospitals map[primitive.ObjectID]*models.Hospital
}

func newMemHospitalRepo(hospitals ...*models.Hospital) *memHospitalRepo {
	r := &memHospitalRepo{hospitals: make(map[primitive.ObjectID]*models.Hospital)}
	for _, h := range hospitals {
		if h.ID.IsZero() {
			h.ID = primitive.NewObjectID()
		}
		r.hospitals[h.ID] = h
	}
	return r
}

func (r *memHospitalRepo) Create(_ context.Context, h *models.Hospital) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	r.hospitals[h.ID] = h
	return nil
}

func (r *memHospitalRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hospitals[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *memHospitalRepo) Update(_ context.Context, id primitive.ObjectID, _ map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hospitals[id]; !ok {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *memHospitalRepo) List(_ context.Context, onlyAvailable bool) ([]*models.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Hospital, 0, len(r.hospitals))
	for _, h := range r.hospitals {
		if onlyAvailable && !h.IsAvailable {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	return out, nil
}

// GetNearby mirrors the $near query: distance sorted, then limited.
func (r *memHospitalRepo) GetNearby(_ context.Context, lat, lng, _ float64, limit int, excludeIDs []primitive.ObjectID) ([]*models.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := make(map[primitive.ObjectID]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	out := make([]*models.Hospital, 0)
	for _, h := range r.hospitals {
		if excluded[h.ID] || !h.IsAvailable {
			continue
		}
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		di := utils.DistanceKm(lat, lng, out[i].Location.Latitude(), out[i].Location.Longitude())
		dj := utils.DistanceKm(lat, lng, out[j].Location.Latitude(), out[j].Location.Longitude())
		return di < dj
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memHospitalRepo) SetAvailability(_ context.Context, id primitive.ObjectID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hospitals[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	h.IsAvailable = available
	return nil
}

func (r *memHospitalRepo) AddBloodAlert(_ context.Context, hospitalID primitive.ObjectID, alert *models.BloodAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return interfaces.ErrNotFound
	}
	h.BloodAlerts = append(h.BloodAlerts, *alert)
	return nil
}

func (r *memHospitalRepo) RespondBloodAlert(_ context.Context, hospitalID primitive.ObjectID, alertID string, status models.BloodAlertStatus, reason string) (*models.BloodAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	for i := range h.BloodAlerts {
		if h.BloodAlerts[i].ID == alertID {
			h.BloodAlerts[i].Status = status
			h.BloodAlerts[i].ResponseReason = reason
			cp := h.BloodAlerts[i]
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *memHospitalRepo) DecrementBloodInventory(_ context.Context, hospitalID primitive.ObjectID, bloodType models.BloodType, units float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return interfaces.ErrNotFound
	}
	if h.BloodInventory == nil {
		return nil
	}
	h.BloodInventory[bloodType] -= units
	if h.BloodInventory[bloodType] < 0 {
		h.BloodInventory[bloodType] = 0
	}
	return nil
}

type memIncidentRepo struct {
	mu        sync.Mutex
	incidents map[primitive.ObjectID]*models.Incident
}

func newMemIncidentRepo(incidents ...*models.Incident) *memIncidentRepo {
	r := &memIncidentRepo{incidents: make(map[primitive.ObjectID]*models.Incident)}
	for _, in := range incidents {
		if in.ID.IsZero() {
			in.ID = primitive.NewObjectID()
		}
		r.incidents[in.ID] = in
	}
	return r
}

func (r *memIncidentRepo) Create(_ context.Context, in *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in.ID.IsZero() {
		in.ID = primitive.NewObjectID()
	}
	r.incidents[in.ID] = in
	return nil
}

func (r *memIncidentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.incidents[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *memIncidentRepo) Update(_ context.Context, id primitive.ObjectID, _ map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.incidents[id]; !ok {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *memIncidentRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.incidents[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(r.incidents, id)
	return nil
}

func (r *memIncidentRepo) List(_ context.Context, status models.IncidentStatus, limit int) ([]*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Incident, 0)
	for _, in := range r.incidents {
		if status != "" && in.Status != status {
			continue
		}
		cp := *in
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memIncidentRepo) GetPending(ctx context.Context) ([]*models.Incident, error) {
	return r.List(ctx, models.IncidentStatusPending, 0)
}

func (r *memIncidentRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.IncidentStatus, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.incidents[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	if in.Status != from {
		return interfaces.ErrConflict
	}
	in.Status = to
	if aid, ok := updates["assigned_ambulance_id"].(primitive.ObjectID); ok {
		in.AssignedAmbulanceID = &aid
	}
	return nil
}

func (r *memIncidentRepo) SetDestinationHospital(_ context.Context, id, hospitalID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.incidents[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	in.DestinationHospitalID = &hospitalID
	return nil
}

func (r *memIncidentRepo) GetIncomingForHospital(_ context.Context, hospitalID primitive.ObjectID) ([]*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Incident, 0)
	for _, in := range r.incidents {
		if in.DestinationHospitalID == nil || *in.DestinationHospitalID != hospitalID {
			continue
		}
		if in.Status != models.IncidentStatusAssigned && in.Status != models.IncidentStatusPickedUp {
			continue
		}
		cp := *in
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memIncidentRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, in := range r.incidents {
		if in.Active() {
			n++
		}
	}
	return n, nil
}

// recordingPublisher captures every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Channel string
	Event   *models.DispatchEvent
}

func (p *recordingPublisher) PublishToHospital(_ context.Context, hospitalID string, event *models.DispatchEvent) error {
	p.record("hospital-"+hospitalID, event)
	return nil
}

func (p *recordingPublisher) PublishToAmbulance(_ context.Context, ambulanceID string, event *models.DispatchEvent) error {
	p.record("ambulance-"+ambulanceID, event)
	return nil
}

func (p *recordingPublisher) PublishGlobal(_ context.Context, event *models.DispatchEvent) error {
	p.record("dispatch-global", event)
	return nil
}

func (p *recordingPublisher) record(channel string, event *models.DispatchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event})
}

func (p *recordingPublisher) byType(eventType models.DispatchEventType) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, 0)
	for _, e := range p.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
