package services

import (
	"context"
	"sync"
	"testing"

	"lifeline/internal/config"
	"lifeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type missionFixture struct {
	svc          *MissionService
	ambulances   *memAmbulanceRepo
	incidents    *memIncidentRepo
	hospitals    *memHospitalRepo
	publisher    *recordingPublisher
	dispatchConf *config.DispatchConfig
}

func newMissionFixture(t *testing.T, hospitals []*models.Hospital, ambulances []*models.Ambulance, incidents []*models.Incident) *missionFixture {
	t.Helper()

	log := testLogger(t)
	hospitalRepo := newMemHospitalRepo(hospitals...)
	ambulanceRepo := newMemAmbulanceRepo(ambulances...)
	incidentRepo := newMemIncidentRepo(incidents...)
	publisher := &recordingPublisher{}
	cfg := testDispatchConfig()

	matching := NewMatchingService(hospitalRepo, NewScoringService(NewSpecialtyLookup()), nil, log)
	locator := NewLocatorService(ambulanceRepo, hospitalRepo, nil, log)

	return &missionFixture{
		svc:          NewMissionService(ambulanceRepo, incidentRepo, hospitalRepo, matching, locator, publisher, cfg, log),
		ambulances:   ambulanceRepo,
		incidents:    incidentRepo,
		hospitals:    hospitalRepo,
		publisher:    publisher,
		dispatchConf: cfg,
	}
}

func idleUnit(lat, lng float64) *models.Ambulance {
	loc := models.NewLocation(lat, lng)
	return &models.Ambulance{
		ID:              primitive.NewObjectID(),
		CallSign:        "A-1",
		Status:          models.AmbulanceStatusIdle,
		CurrentLocation: &loc,
	}
}

func pendingIncident(lat, lng float64) *models.Incident {
	return &models.Incident{
		ID:       primitive.NewObjectID(),
		Location: models.NewLocation(lat, lng),
		Status:   models.IncidentStatusPending,
		Severity: models.SeverityHigh,
	}
}

func TestClaimIncident(t *testing.T) {
	unit := idleUnit(27.72, 85.32)
	incident := pendingIncident(27.7172, 85.3240)
	f := newMissionFixture(t, nil, []*models.Ambulance{unit}, []*models.Incident{incident})

	claimed, err := f.svc.ClaimIncident(context.Background(), unit.ID, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusDispatched, claimed.Status)
	require.NotNil(t, claimed.CurrentIncidentID)
	assert.Equal(t, incident.ID, *claimed.CurrentIncidentID)

	stored, err := f.incidents.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusAssigned, stored.Status)
	require.NotNil(t, stored.AssignedAmbulanceID)
	assert.Equal(t, unit.ID, *stored.AssignedAmbulanceID)
}

// Two idle units race for the same incident: exactly one wins, the
// loser sees the claim conflict and stays idle.
func TestClaimIncidentRace(t *testing.T) {
	unitA := idleUnit(27.72, 85.32)
	unitB := idleUnit(27.73, 85.32)
	incident := pendingIncident(27.7172, 85.3240)
	f := newMissionFixture(t, nil, []*models.Ambulance{unitA, unitB}, []*models.Incident{incident})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []primitive.ObjectID{unitA.ID, unitB.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = f.svc.ClaimIncident(context.Background(), id, incident.ID)
		}(i, id)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyAssigned)
		}
	}
	assert.Equal(t, 1, winners)

	// The loser is back in the pool.
	idle, err := f.ambulances.CountByStatus(context.Background(), models.AmbulanceStatusIdle)
	require.NoError(t, err)
	assert.EqualValues(t, 1, idle)
	dispatched, err := f.ambulances.CountByStatus(context.Background(), models.AmbulanceStatusDispatched)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dispatched)
}

func TestClaimIncidentAlreadyTaken(t *testing.T) {
	unit := idleUnit(27.72, 85.32)
	incident := pendingIncident(27.7172, 85.3240)
	incident.Status = models.IncidentStatusAssigned
	f := newMissionFixture(t, nil, []*models.Ambulance{unit}, []*models.Incident{incident})

	_, err := f.svc.ClaimIncident(context.Background(), unit.ID, incident.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestClaimIncidentNotFound(t *testing.T) {
	unit := idleUnit(27.72, 85.32)
	f := newMissionFixture(t, nil, []*models.Ambulance{unit}, nil)

	_, err := f.svc.ClaimIncident(context.Background(), unit.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProximityAutoArrival(t *testing.T) {
	incident := pendingIncident(27.7172, 85.3240)
	unit := idleUnit(27.75, 85.32)
	f := newMissionFixture(t, nil, []*models.Ambulance{unit}, []*models.Incident{incident})

	_, err := f.svc.ClaimIncident(context.Background(), unit.ID, incident.ID)
	require.NoError(t, err)

	// Still ~1 km out: no transition.
	updated, err := f.svc.UpdateLocation(context.Background(), unit.ID, 27.726, 85.3240)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusDispatched, updated.Status)

	// Inside 50 m: dispatched -> on_scene fires.
	updated, err = f.svc.UpdateLocation(context.Background(), unit.ID, 27.71722, 85.32401)
	require.NoError(t, err)
	stored, err := f.ambulances.GetByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusOnScene, stored.Status)
	versionAfterArrival := stored.Version

	// Another report inside the threshold does not re-fire the
	// transition.
	_, err = f.svc.UpdateLocation(context.Background(), unit.ID, 27.71721, 85.32400)
	require.NoError(t, err)
	stored, err = f.ambulances.GetByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusOnScene, stored.Status)
	assert.Equal(t, versionAfterArrival, stored.Version)
}

func TestFullMissionLifecycle(t *testing.T) {
	hospital := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Central Hospital",
		Location:      models.NewLocation(27.70, 85.31),
		BedsAvailable: 12,
		IsAvailable:   true,
	}
	incident := pendingIncident(27.7172, 85.3240)
	incident.DestinationHospitalID = &hospital.ID
	unit := idleUnit(27.7172, 85.3240)

	f := newMissionFixture(t, []*models.Hospital{hospital}, []*models.Ambulance{unit}, []*models.Incident{incident})

	_, err := f.svc.ClaimIncident(context.Background(), unit.ID, incident.ID)
	require.NoError(t, err)

	// Already on scene by position.
	_, err = f.svc.UpdateLocation(context.Background(), unit.ID, 27.7172, 85.3240)
	require.NoError(t, err)

	transporting, err := f.svc.DepartForHospital(context.Background(), unit.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusTransporting, transporting.Status)
	require.NotNil(t, transporting.CurrentHospitalID)
	assert.Equal(t, hospital.ID, *transporting.CurrentHospitalID)

	stored, err := f.incidents.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusPickedUp, stored.Status)

	arrived, err := f.svc.ConfirmArrival(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusAtHospital, arrived.Status)

	done, err := f.svc.CompleteMission(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusIdle, done.Status)
	assert.Nil(t, done.CurrentIncidentID)

	resolved, err := f.incidents.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentStatusResolved, resolved.Status)
}

func TestDepartRematchesOnCasualtyProfile(t *testing.T) {
	// Default destination has no burn cover; the casualty profile
	// should shift transport to the surgical hospital.
	plain := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Plain Hospital",
		Location:      models.NewLocation(27.70, 85.31),
		BedsAvailable: 12,
		IsAvailable:   true,
	}
	surgical := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Surgical Hospital",
		Location:      models.NewLocation(27.71, 85.33),
		BedsAvailable: 12,
		StaffCount:    map[string]int{"General Surgeon": 4},
		IsAvailable:   true,
	}
	incident := pendingIncident(27.7172, 85.3240)
	incident.DestinationHospitalID = &plain.ID
	unit := idleUnit(27.7172, 85.3240)

	f := newMissionFixture(t, []*models.Hospital{plain, surgical}, []*models.Ambulance{unit}, []*models.Incident{incident})

	_, err := f.svc.ClaimIncident(context.Background(), unit.ID, incident.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateLocation(context.Background(), unit.ID, 27.7172, 85.3240)
	require.NoError(t, err)

	transporting, err := f.svc.DepartForHospital(context.Background(), unit.ID, []models.Casualty{
		{InjuryType: "burn", Severity: models.SeverityHigh},
	})
	require.NoError(t, err)
	require.NotNil(t, transporting.CurrentHospitalID)
	assert.Equal(t, surgical.ID, *transporting.CurrentHospitalID)

	stored, err := f.incidents.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DestinationHospitalID)
	assert.Equal(t, surgical.ID, *stored.DestinationHospitalID)
}

func TestInvalidTransitions(t *testing.T) {
	unit := idleUnit(27.72, 85.32)
	f := newMissionFixture(t, nil, []*models.Ambulance{unit}, nil)

	// Idle unit cannot confirm arrival or complete.
	_, err := f.svc.ConfirmArrival(context.Background(), unit.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.CompleteMission(context.Background(), unit.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// No mission bound: depart is rejected.
	_, err = f.svc.DepartForHospital(context.Background(), unit.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProximityArrivalPolicy(t *testing.T) {
	hospital := &models.Hospital{
		ID:            primitive.NewObjectID(),
		Name:          "Central Hospital",
		Location:      models.NewLocation(27.70, 85.31),
		BedsAvailable: 12,
		IsAvailable:   true,
	}
	incident := pendingIncident(27.7172, 85.3240)
	incident.DestinationHospitalID = &hospital.ID
	unit := idleUnit(27.7172, 85.3240)

	f := newMissionFixture(t, []*models.Hospital{hospital}, []*models.Ambulance{unit}, []*models.Incident{incident})
	f.dispatchConf.ArrivalConfirmation = config.ArrivalConfirmProximity

	_, err := f.svc.ClaimIncident(context.Background(), unit.ID, incident.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateLocation(context.Background(), unit.ID, 27.7172, 85.3240)
	require.NoError(t, err)
	_, err = f.svc.DepartForHospital(context.Background(), unit.ID, nil)
	require.NoError(t, err)

	// A report at the hospital door flips transporting -> at_hospital
	// without a manual confirmation.
	_, err = f.svc.UpdateLocation(context.Background(), unit.ID, 27.70, 85.31)
	require.NoError(t, err)

	stored, err := f.ambulances.GetByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AmbulanceStatusAtHospital, stored.Status)
}
