package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/holiday-engine/api"
	"github.com/warp/holiday-engine/holiday"
	"github.com/warp/holiday-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	roles := holiday.StaticRoles{
		"emp-1": holiday.RoleNonClinical,
		"gp-1":  holiday.RoleClinical,
	}
	handler := api.NewHandler(store, roles)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func putFullTimePattern(t *testing.T, srv *httptest.Server, staffID string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/staff/"+staffID+"/pattern", api.PutPatternRequest{
		SiteID: "site-1",
		Hours:  api.DayValuesDTO{"7.5", "7.5", "7.5", "7.5", "7.5"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func createBooking(t *testing.T, srv *httptest.Server, staffID, start, end string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/staff/"+staffID+"/bookings", api.CreateBookingRequest{
		SiteID:    "site-1",
		StartDate: start,
		EndDate:   end,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

// =============================================================================
// PATTERN + ENTITLEMENT
// =============================================================================

func TestPutPattern_RecalculatesEntitlement(t *testing.T) {
	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/staff/emp-1/entitlement", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "37.5", body["weekly_hours"])
	assert.Equal(t, "37.5", body["calculated_hours"])
}

func TestOverride_SetAndClear(t *testing.T) {
	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/staff/emp-1/entitlement/override",
		api.SetOverrideRequest{Value: "180"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body["override"])
	assert.Equal(t, "180", body["override"])

	// Balance must follow the override.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/staff/emp-1/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "180", body["entitlement"])

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/api/staff/emp-1/entitlement/override", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["override"])
	assert.Equal(t, "37.5", body["calculated_hours"])
}

// =============================================================================
// BOOKING LIFECYCLE OVER HTTP
// =============================================================================

func TestBookingFlow_CreateApproveBalance(t *testing.T) {
	// GIVEN: emp-1 with 37.5h/week and an override of 200
	// WHEN: A full week is booked and approved
	// THEN: Balance shows booked 37.5, remaining 162.5

	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")
	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/staff/emp-1/entitlement/override?year=2025",
		api.SetOverrideRequest{Value: "200"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// March 10-14, 2025 is Mon-Fri.
	id := createBooking(t, srv, "emp-1", "2025-03-10", "2025-03-14")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/bookings/"+id+"/approve",
		api.TransitionRequest{Actor: "mgr-9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	booking := body["booking"].(map[string]any)
	assert.Equal(t, "approved", booking["status"])
	assert.Equal(t, "mgr-9", booking["decided_by"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/staff/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200", body["entitlement"])
	assert.Equal(t, "37.5", body["booked"])
	assert.Equal(t, "162.5", body["remaining"])
}

func TestApprove_OverlapEnumeratedInResponse(t *testing.T) {
	// GIVEN: An approved booking for Mar 2-5
	// WHEN: Approving an overlapping booking for Mar 1-3
	// THEN: 200 with the existing booking listed under conflicts

	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")

	existing := createBooking(t, srv, "emp-1", "2025-03-02", "2025-03-05")
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/bookings/"+existing+"/approve",
		api.TransitionRequest{Actor: "mgr-9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	candidate := createBooking(t, srv, "emp-1", "2025-03-01", "2025-03-03")
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/bookings/"+candidate+"/approve",
		api.TransitionRequest{Actor: "mgr-9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conflicts, ok := body["conflicts"].([]any)
	require.True(t, ok, "conflicts must be enumerated, body: %v", body)
	require.Len(t, conflicts, 1)
	assert.Equal(t, existing, conflicts[0].(map[string]any)["id"])
}

func TestTransition_Illegal_Returns409(t *testing.T) {
	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")

	id := createBooking(t, srv, "emp-1", "2025-03-10", "2025-03-11")
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/bookings/"+id+"/cancel",
		api.TransitionRequest{Actor: "emp-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/bookings/"+id+"/approve",
		api.TransitionRequest{Actor: "mgr-9"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, fmt.Sprint(body["error"]), "cancelled")
}

func TestCreateBooking_InvalidRange_Returns400(t *testing.T) {
	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/staff/emp-1/bookings", api.CreateBookingRequest{
		SiteID:    "site-1",
		StartDate: "2025-03-14",
		EndDate:   "2025-03-10",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, fmt.Sprint(body["error"]), "end date before start date")
}

func TestBooking_UnknownStaffRole_Fails(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/staff/stranger/bookings", api.CreateBookingRequest{
		SiteID:    "site-1",
		StartDate: "2025-03-10",
		EndDate:   "2025-03-11",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListBookings_StatusFilter(t *testing.T) {
	srv := newTestServer(t)
	putFullTimePattern(t, srv, "emp-1")

	a := createBooking(t, srv, "emp-1", "2025-03-10", "2025-03-11")
	createBooking(t, srv, "emp-1", "2025-04-01", "2025-04-02")
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/bookings/"+a+"/approve",
		api.TransitionRequest{Actor: "mgr-9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/staff/emp-1/bookings?status=approved", nil)
	require.NoError(t, err)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, a, list[0]["id"])
}
