package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aditus-access/aditus/server/internal/aditus/service"
	"github.com/aditus-access/aditus/server/internal/aditus/store/memory"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
	"github.com/aditus-access/aditus/server/internal/httpapi"
)

type rejectAllMatcher struct{}

func (rejectAllMatcher) Match(context.Context, []byte) (string, float64, bool, error) {
	return "", 0, false, nil
}

// newTestServer wires the full engine over in-memory stores and returns
// an httptest.Server plus the reference store for seeding.
func newTestServer(t *testing.T) (*httptest.Server, *memory.ReferenceStore) {
	t.Helper()

	ref := memory.NewReferenceStore()
	audit := memory.NewAccessLogStore()
	occupancy := service.NewOccupancyManager(nil, zerolog.Nop())

	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		Registry:   service.NewDeviceRegistry(ref),
		Zones:      ref,
		Resolver:   service.NewCredentialResolver(ref, rejectAllMatcher{}, 0.85),
		Membership: service.NewStoreMembership(ref),
		Occupancy:  occupancy,
		Rules:      service.NewRuleEvaluator(ref),
		Audit:      audit,
		Dedup:      service.NewDeduper(time.Minute),
		Logger:     zerolog.Nop(),
	})

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:          zerolog.Nop(),
		Addr:            ":0",
		Orchestrator:    orchestrator,
		Occupancy:       occupancy,
		Zones:           ref,
		AccessLog:       audit,
		CredentialAdmin: service.NewCredentialAdmin(ref),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, ref
}

func seedGym(ref *memory.ReferenceStore) {
	ref.PutZone(types.Zone{ID: "gym", TenantID: "tenant-1", Type: types.ZoneGymFloor})
	ref.PutDevice(types.Device{
		ID: "dev-1", TenantID: "tenant-1", ZoneID: "gym", Status: types.DeviceActive,
	})
	ref.PutMember(types.Member{
		ID: "mem-1", TenantID: "tenant-1", Gender: types.GenderFemale,
		PlanID: "plan-basic", Active: true,
	})
	ref.PutCredential(types.Credential{
		ID: "cred-1", MemberID: "mem-1",
		Kind: types.CredentialCard, Status: types.StatusActive,
		CardNumber: "10001", CardType: types.CardMifare,
	})
}

func postEvent(t *testing.T, ts *httptest.Server, body string) (*http.Response, types.Decision) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/access_event", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var d types.Decision
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&d))
	}
	return resp, d
}

func TestAccessEvent_GrantedAndVisibleInOccupancy(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, d := postEvent(t, ts, `{
		"event_id": "evt-1",
		"device_id": "dev-1",
		"credential_payload": "10001",
		"method": "RFID",
		"direction": "ENTRY"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, types.ResultGranted, d.Result)
	require.Equal(t, "mem-1", d.MemberID)
	require.Equal(t, "gym", d.ZoneID)

	occResp, err := http.Get(ts.URL + "/v1/zones/gym/occupancy")
	require.NoError(t, err)
	defer occResp.Body.Close()
	require.Equal(t, http.StatusOK, occResp.StatusCode)

	var snap types.OccupancySnapshot
	require.NoError(t, json.NewDecoder(occResp.Body).Decode(&snap))
	require.Equal(t, "gym", snap.ZoneID)
	require.Equal(t, 1, snap.Count)
	require.Equal(t, 1, snap.PeakCount)
}

func TestAccessEvent_DeniedUnknownCredential(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, d := postEvent(t, ts, `{
		"event_id": "evt-1",
		"device_id": "dev-1",
		"credential_payload": "99999",
		"method": "RFID",
		"direction": "ENTRY"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, types.ResultDenied, d.Result)
	require.NotNil(t, d.Reason)
	require.Equal(t, types.ReasonUnknownCredential, *d.Reason)
}

func TestAccessEvent_MalformedBody(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, _ := postEvent(t, ts, `{"event_id": "evt-1"`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccessEvent_MissingFieldsRejected(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, _ := postEvent(t, ts, `{"event_id": "evt-1", "device_id": "dev-1"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccessEvent_UnknownFieldRejected(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, _ := postEvent(t, ts, `{
		"event_id": "evt-1",
		"device_id": "dev-1",
		"credential_payload": "10001",
		"method": "RFID",
		"direction": "ENTRY",
		"bogus": true
	}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestZoneOccupancy_UnknownZone404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/zones/nope/occupancy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAllOccupancy_ListsActiveZones(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	for i := 1; i <= 3; i++ {
		ref.PutMember(types.Member{
			ID: fmt.Sprintf("mem-%d", i), TenantID: "tenant-1",
			Gender: types.GenderFemale, PlanID: "plan-basic", Active: true,
		})
		ref.PutCredential(types.Credential{
			ID: fmt.Sprintf("cred-%d", i), MemberID: fmt.Sprintf("mem-%d", i),
			Kind: types.CredentialCard, Status: types.StatusActive,
			CardNumber: fmt.Sprintf("1000%d", i), CardType: types.CardMifare,
		})
		resp, d := postEvent(t, ts, fmt.Sprintf(`{
			"event_id": "evt-%d",
			"device_id": "dev-1",
			"credential_payload": "1000%d",
			"method": "RFID",
			"direction": "ENTRY"
		}`, i, i))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, types.ResultGranted, d.Result)
	}

	resp, err := http.Get(ts.URL + "/v1/zones/occupancy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snaps []types.OccupancySnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snaps))
	require.Len(t, snaps, 1)
	require.Equal(t, 3, snaps[0].Count)
}

func TestMemberLocation_TrackedAcrossEntryAndExit(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, _ := postEvent(t, ts, `{
		"event_id": "evt-in",
		"device_id": "dev-1",
		"credential_payload": "10001",
		"method": "RFID",
		"direction": "ENTRY"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	locResp, err := http.Get(ts.URL + "/v1/members/mem-1/location")
	require.NoError(t, err)
	defer locResp.Body.Close()
	require.Equal(t, http.StatusOK, locResp.StatusCode)

	var loc types.MemberLocation
	require.NoError(t, json.NewDecoder(locResp.Body).Decode(&loc))
	require.Equal(t, "gym", loc.ZoneID)

	resp, _ = postEvent(t, ts, `{
		"event_id": "evt-out",
		"device_id": "dev-1",
		"credential_payload": "10001",
		"method": "RFID",
		"direction": "EXIT"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	goneResp, err := http.Get(ts.URL + "/v1/members/mem-1/location")
	require.NoError(t, err)
	defer goneResp.Body.Close()
	require.Equal(t, http.StatusNotFound, goneResp.StatusCode)
}

func TestAccessLog_FilterByResult(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, _ := postEvent(t, ts, `{
		"event_id": "evt-ok",
		"device_id": "dev-1",
		"credential_payload": "10001",
		"method": "RFID",
		"direction": "ENTRY"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postEvent(t, ts, `{
		"event_id": "evt-bad",
		"device_id": "dev-1",
		"credential_payload": "junk",
		"method": "RFID",
		"direction": "ENTRY"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	logResp, err := http.Get(ts.URL + "/v1/access_log?result=DENIED")
	require.NoError(t, err)
	defer logResp.Body.Close()
	require.Equal(t, http.StatusOK, logResp.StatusCode)

	var entries []types.AccessLogEntry
	require.NoError(t, json.NewDecoder(logResp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	require.Equal(t, types.ResultDenied, entries[0].Result)
	require.NotNil(t, entries[0].Reason)
	require.Equal(t, types.ReasonUnknownCredential, *entries[0].Reason)
}

func TestCredentialStatus_SuspendThenDenied(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, err := http.Post(ts.URL+"/v1/credentials/cred-1/status", "application/json",
		bytes.NewReader([]byte(`{"transition": "suspend"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	evResp, d := postEvent(t, ts, `{
		"event_id": "evt-1",
		"device_id": "dev-1",
		"credential_payload": "10001",
		"method": "RFID",
		"direction": "ENTRY"
	}`)
	require.Equal(t, http.StatusOK, evResp.StatusCode)
	require.Equal(t, types.ResultDenied, d.Result)
	require.NotNil(t, d.Reason)
	require.Equal(t, types.ReasonSuspendedCard, *d.Reason)
}

func TestCredentialStatus_RevokedIsTerminal(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, err := http.Post(ts.URL+"/v1/credentials/cred-1/status", "application/json",
		bytes.NewReader([]byte(`{"transition": "revoke"}`)))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/v1/credentials/cred-1/status", "application/json",
		bytes.NewReader([]byte(`{"transition": "reactivate"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCredentialStatus_UnknownCredential404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/credentials/cred-missing/status", "application/json",
		bytes.NewReader([]byte(`{"transition": "suspend"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCredentialStatus_UnknownTransition(t *testing.T) {
	ts, ref := newTestServer(t)
	seedGym(ref)

	resp, err := http.Post(ts.URL+"/v1/credentials/cred-1/status", "application/json",
		bytes.NewReader([]byte(`{"transition": "vaporize"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
