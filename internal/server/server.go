// Package server is a JSON surface over the state cache and the
// mutation orchestrator. It serves cached snapshots for reads and
// forwards writes; it never talks to the chain directly.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"unigame/internal/auth"
	"unigame/internal/cache"
	"unigame/internal/fault"
	"unigame/internal/history"
	"unigame/internal/model"
	"unigame/internal/orchestrator"
	"unigame/internal/store"
)

// Server wires the HTTP routes to the application core.
type Server struct {
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	lookups      *cache.Cache
	history      history.Store
	auth         *auth.Client
	logger       *zap.Logger
}

func New(st *store.Store, orch *orchestrator.Orchestrator, lookups *cache.Cache, hist history.Store, logger *zap.Logger) *Server {
	if hist == nil {
		hist = history.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:        st,
		orchestrator: orch,
		lookups:      lookups,
		history:      hist,
		logger:       logger,
	}
}

// WithAuth attaches the account backend client; without it the auth
// routes answer 503.
func (s *Server) WithAuth(client *auth.Client) *Server {
	s.auth = client
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /bets", s.handleBets)
	mux.HandleFunc("GET /polls", s.handlePolls)
	mux.HandleFunc("GET /raffles", s.handleRaffles)
	mux.HandleFunc("GET /stakes", s.handleStakePools)

	mux.HandleFunc("GET /polls/{id}/voted", s.handleVoted)
	mux.HandleFunc("GET /raffles/{id}/tickets", s.handleTickets)

	mux.HandleFunc("POST /bets", s.handleCreateBet)
	mux.HandleFunc("POST /bets/{id}/accept", s.handleAcceptBet)
	mux.HandleFunc("POST /bets/{id}/resolve", s.handleResolveBet)
	mux.HandleFunc("POST /polls", s.handleCreatePoll)
	mux.HandleFunc("POST /polls/{id}/vote", s.handleVote)
	mux.HandleFunc("POST /raffles", s.handleCreateRaffle)
	mux.HandleFunc("POST /raffles/{id}/tickets", s.handleBuyTickets)
	mux.HandleFunc("POST /stakes", s.handleCreateStakePool)
	mux.HandleFunc("POST /stakes/{id}/stake", s.handleStake)
	mux.HandleFunc("POST /stakes/{id}/unstake", s.handleUnstake)

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/signin", s.handleSignin)

	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return mux
}

// Start serves the API on the given port in a goroutine.
func (s *Server) Start(port int) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()
	return srv
}

type collectionResponse struct {
	Version uint64 `json:"version"`
	Error   string `json:"error,omitempty"`
	Records any    `json:"records"`
}

func (s *Server) collection(w http.ResponseWriter, resource model.Resource, records any) {
	resp := collectionResponse{
		Version: s.store.Version(resource),
		Records: records,
	}
	if err := s.store.Err(resource); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBets(w http.ResponseWriter, r *http.Request) {
	s.collection(w, model.ResourceBets, s.store.Bets())
}

func (s *Server) handlePolls(w http.ResponseWriter, r *http.Request) {
	s.collection(w, model.ResourcePolls, s.store.Polls())
}

func (s *Server) handleRaffles(w http.ResponseWriter, r *http.Request) {
	s.collection(w, model.ResourceRaffles, s.store.Raffles())
}

func (s *Server) handleStakePools(w http.ResponseWriter, r *http.Request) {
	s.collection(w, model.ResourceStakes, s.store.StakePools())
}

func (s *Server) handleVoted(w http.ResponseWriter, r *http.Request) {
	if s.lookups == nil {
		writeError(w, http.StatusServiceUnavailable, "lookup cache not configured")
		return
	}
	id, account, ok := s.lookupParams(w, r)
	if !ok {
		return
	}
	voted, err := s.lookups.HasVoted(r.Context(), id, account)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"poll_id": id, "account": account.Hex(), "voted": voted})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	if s.lookups == nil {
		writeError(w, http.StatusServiceUnavailable, "lookup cache not configured")
		return
	}
	id, account, ok := s.lookupParams(w, r)
	if !ok {
		return
	}
	count, err := s.lookups.TicketCount(r.Context(), id, account)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"raffle_id": id, "account": account.Hex(), "tickets": count})
}

func (s *Server) lookupParams(w http.ResponseWriter, r *http.Request) (uint64, common.Address, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, common.Address{}, false
	}
	raw := r.URL.Query().Get("account")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return 0, common.Address{}, false
	}
	return id, common.HexToAddress(raw), true
}

func (s *Server) handleCreateBet(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.CreateBetInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.CreateBet(ctx, in)
	})
}

func (s *Server) handleAcceptBet(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.AcceptBetInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !pathID(w, r, &in.BetID) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.AcceptBet(ctx, in)
	})
}

func (s *Server) handleResolveBet(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.ResolveBetInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !pathID(w, r, &in.BetID) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.ResolveBet(ctx, in)
	})
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.CreatePollInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.CreatePoll(ctx, in)
	})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.VoteInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !pathID(w, r, &in.PollID) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.Vote(ctx, in)
	})
}

func (s *Server) handleCreateRaffle(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.CreateRaffleInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.CreateRaffle(ctx, in)
	})
}

func (s *Server) handleBuyTickets(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.BuyTicketsInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !pathID(w, r, &in.RaffleID) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.BuyTickets(ctx, in)
	})
}

func (s *Server) handleCreateStakePool(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.CreateStakePoolInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.CreateStakePool(ctx, in)
	})
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.StakeInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !pathID(w, r, &in.PoolID) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.Stake(ctx, in)
	})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var in orchestrator.UnstakeInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !pathID(w, r, &in.PoolID) {
		return
	}
	s.mutate(w, r.Context(), func(ctx context.Context) error {
		return s.orchestrator.Unstake(ctx, in)
	})
}

type credentials struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.authRequest(w, r)
	if !ok {
		return
	}
	session, err := s.auth.Signup(r.Context(), creds.Email, creds.Password, creds.WalletAddress)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.authRequest(w, r)
	if !ok {
		return
	}
	session, err := s.auth.Signin(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) authRequest(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "auth backend not configured")
		return credentials{}, false
	}
	var creds credentials
	if !decodeBody(w, r, &creds) {
		return credentials{}, false
	}
	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return credentials{}, false
	}
	return creds, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if !common.IsHexAddress(account) {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	records, err := s.history.ActionsByAccount(r.Context(), common.HexToAddress(account).Hex(), limit)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	if records == nil {
		records = []model.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	events, err := s.history.RecentEvents(r.Context(), limit)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	if events == nil {
		events = []model.ChainEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": events})
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.history.Totals(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bets":            len(s.store.Bets()),
		"polls":           len(s.store.Polls()),
		"raffles":         len(s.store.Raffles()),
		"stakes":          len(s.store.StakePools()),
		"totals":          totals,
		"dropped_updates": s.store.Dropped(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	for _, resource := range []model.Resource{
		model.ResourceBets, model.ResourcePolls, model.ResourceRaffles, model.ResourceStakes,
	} {
		if err := s.store.Err(resource); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "degraded",
				"resource": resource,
				"error":    err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) mutate(w http.ResponseWriter, ctx context.Context, fn func(context.Context) error) {
	if s.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "mutations not configured")
		return
	}
	if err := fn(ctx); err != nil {
		s.writeFault(w, err)
		return
	}
	// The orchestrator waits for the receipt before returning, so a
	// success response reports a mined transaction.
	writeJSON(w, http.StatusOK, map[string]any{"status": "confirmed"})
}

// writeFault maps the error taxonomy onto HTTP status codes.
func (s *Server) writeFault(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindValidation:
		status = http.StatusBadRequest
	case fault.KindWallet:
		status = http.StatusUnauthorized
	case fault.KindRejected:
		status = http.StatusConflict
	case fault.KindRevert:
		status = http.StatusUnprocessableEntity
	case fault.KindConnectivity:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"kind":  fault.KindOf(err).String(),
		"error": fault.Message(err),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, dst *uint64) bool {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return false
	}
	*dst = id
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
