package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unigame/internal/auth"
	"unigame/internal/model"
	"unigame/internal/notify"
	"unigame/internal/orchestrator"
	"unigame/internal/store"
	"unigame/internal/unigame"
)

// stubBackend answers just enough of the contract surface for the
// route tests: empty collections, a working createBet, and a stake
// method that always reverts.
type stubBackend struct{}

func (stubBackend) SignerAddress() (common.Address, bool) {
	return common.HexToAddress("0x00000000000000000000000000000000000000F1"), true
}

func (stubBackend) WaitMined(_ context.Context, _ *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (stubBackend) CallView(_ context.Context, method string, _ ...interface{}) ([]interface{}, error) {
	switch method {
	case "betCounter", "getPollsLength", "raffleCount", "stakePoolCounter":
		return []interface{}{big.NewInt(0)}, nil
	}
	return nil, fmt.Errorf("unexpected view %s", method)
}

func (stubBackend) Submit(_ context.Context, method string, value *big.Int, _ ...interface{}) (*types.Transaction, error) {
	if method == "stake" {
		return nil, fmt.Errorf("execution reverted: pool capacity exceeded")
	}
	to := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	return types.NewTx(&types.LegacyTx{To: &to, Value: value, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func newTestServer() (*Server, *store.Store) {
	st := store.New()
	backend := stubBackend{}
	refresher := store.NewRefresher(unigame.NewReader(backend), st, nil)
	orch := orchestrator.New(backend, st, refresher, notify.NewHub(nil), nil)
	return New(st, orch, nil, nil, nil), st
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetBetsSnapshot(t *testing.T) {
	srv, st := newTestServer()
	st.ReplaceBets([]model.Bet{{ID: 1, Description: "cached", State: model.BetPending, Amount: big.NewInt(1)}})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/bets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Version uint64 `json:"version"`
		Records []struct {
			ID          uint64 `json:"id"`
			Description string `json:"description"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Version)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "cached", resp.Records[0].Description)
}

func TestCreateBetConfirmed(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bets",
		`{"description":"route test","amount":"0.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp["status"])
}

func TestCreateBetValidationMapsTo400(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bets", `{"amount":"0.5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp["kind"])
}

func TestCreateBetBadBody(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/bets", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStakeRevertMapsTo422(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/stakes/1/stake", `{"amount":"2"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "revert", resp["kind"])
}

func TestMutationPathIDWins(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/stakes/abc/stake", `{"amount":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, st := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	st.SetErr(model.ResourceRaffles, fmt.Errorf("rpc down"))
	rec = doRequest(t, srv.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "raffles", resp["resource"])
}

func TestHistoryRequiresValidAccount(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/history?account=nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEmptyWithoutStore(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodGet,
		"/history?account=0x0000000000000000000000000000000000000001", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []model.ActionRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Records)
}

func TestVotedLookupWithoutCache(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodGet,
		"/polls/0/voted?account=0x0000000000000000000000000000000000000001", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStats(t *testing.T) {
	srv, st := newTestServer()
	st.ReplacePolls([]model.Poll{{ID: 0, Question: "q"}})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["polls"])
	assert.Equal(t, float64(0), resp["bets"])
	assert.Equal(t, float64(0), resp["dropped_updates"])
}

func TestEventsEmptyWithoutStore(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Records []model.ChainEvent `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Records)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/events?limit=0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutes(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/auth/signin":
			assert.Equal(t, "user@example.com", body["email"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"tok-1","walletAddress":"0x0000000000000000000000000000000000000001"}`))
		case "/api/auth/signup":
			assert.Equal(t, "0x0000000000000000000000000000000000000002", body["walletAddress"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"tok-2"}`))
		default:
			t.Fatalf("unexpected upstream path %s", r.URL.Path)
		}
	}))
	defer backend.Close()

	srv, _ := newTestServer()
	srv.WithAuth(auth.New(backend.URL))

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/auth/signin",
		`{"email":"user@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "tok-1", session.Token)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/auth/signup",
		`{"email":"new@example.com","password":"secret","wallet_address":"0x0000000000000000000000000000000000000002"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/auth/signin", `{"email":"user@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutesUnconfigured(t *testing.T) {
	srv, _ := newTestServer()

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/auth/signin",
		`{"email":"user@example.com","password":"secret"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
