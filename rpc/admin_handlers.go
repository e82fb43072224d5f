package rpc

import (
	"errors"
	"math/big"
	"net/http"
	"strings"
)

var (
	errInvalidAmountString  = errors.New("invalid amount")
	errNegativeAmountString = errors.New("amount must not be negative")
)

type applicationParams struct {
	Caller      string `json:"caller"`
	Application string `json:"application"`
}

type panicButtonParams struct {
	Caller      string `json:"caller"`
	Application string `json:"application"`
	PanicButton string `json:"panicButton"`
}

type paramAmountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type ceilingParams struct {
	Caller  string `json:"caller"`
	Ceiling uint64 `json:"ceiling"`
}

type discrepancyPenaltyParams struct {
	Caller           string `json:"caller"`
	Amount           string `json:"amount"`
	RewardMultiplier uint64 `json:"rewardMultiplier"`
}

type applicationResult struct {
	Address     string `json:"address"`
	Approved    bool   `json:"approved"`
	Disabled    bool   `json:"disabled"`
	PanicButton string `json:"panicButton,omitempty"`
}

type paramsResult struct {
	MinimumStake                string `json:"minimumStake"`
	AuthorizationCeiling        uint64 `json:"authorizationCeiling"`
	NotificationReward          string `json:"notificationReward"`
	DiscrepancyPenalty          string `json:"discrepancyPenalty"`
	DiscrepancyRewardMultiplier uint64 `json:"discrepancyRewardMultiplier"`
}

func (s *Server) handleApproveApplication(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.applicationCall(w, req, s.engine.ApproveApplication, "failed to approve application")
}

func (s *Server) handleDisableApplication(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.applicationCall(w, req, s.engine.DisableApplication, "failed to disable application")
}

func (s *Server) applicationCall(w http.ResponseWriter, req *RPCRequest, call func([20]byte, [20]byte) error, action string) {
	var params applicationParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	if err := call(caller, application); err != nil {
		writeEngineError(w, req.ID, action, err)
		return
	}
	s.writeApplication(w, req.ID, application)
}

func (s *Server) handleSetPanicButton(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params panicButtonParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	panicButton, err := decodeBech32(params.PanicButton)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid panic button address", err.Error())
		return
	}
	if err := s.engine.SetPanicButton(caller, application, panicButton); err != nil {
		writeEngineError(w, req.ID, "failed to set panic button", err)
		return
	}
	s.writeApplication(w, req.ID, application)
}

func (s *Server) handleSetMinimumStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.paramAmountCall(w, req, s.engine.SetMinimumStake, "failed to set minimum stake")
}

func (s *Server) handleSetNotificationReward(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.paramAmountCall(w, req, s.engine.SetNotificationReward, "failed to set notification reward")
}

// paramAmountCall handles governance setters taking a single amount. Zero is
// a valid value for these knobs, so the positivity check is relaxed.
func (s *Server) paramAmountCall(w http.ResponseWriter, req *RPCRequest, call func([20]byte, *big.Int) error, action string) {
	var params paramAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseParamAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := call(caller, amount); err != nil {
		writeEngineError(w, req.ID, action, err)
		return
	}
	s.writeParams(w, req.ID)
}

func (s *Server) handleSetAuthorizationCeiling(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params ceilingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.SetAuthorizationCeiling(caller, params.Ceiling); err != nil {
		writeEngineError(w, req.ID, "failed to set authorization ceiling", err)
		return
	}
	s.writeParams(w, req.ID)
}

func (s *Server) handleSetDiscrepancyPenalty(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params discrepancyPenaltyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseParamAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.SetDiscrepancyPenalty(caller, amount, params.RewardMultiplier); err != nil {
		writeEngineError(w, req.ID, "failed to set discrepancy penalty", err)
		return
	}
	s.writeParams(w, req.ID)
}

func (s *Server) handleTopUpTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params paramAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.chargeQuota(clientSource(r), 0, amount); err != nil {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "amount quota exceeded", nil)
		return
	}
	if err := s.engine.TopUpNotifiersTreasury(caller, amount); err != nil {
		writeEngineError(w, req.ID, "failed to top up treasury", err)
		return
	}
	balance, err := s.engine.TreasuryBalance()
	if err != nil {
		writeEngineError(w, req.ID, "failed to read treasury balance", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(balance)})
}

func (s *Server) handleApplicationInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Application string `json:"application"`
	}
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	s.writeApplication(w, req.ID, application)
}

func (s *Server) handleParams(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.writeParams(w, req.ID)
}

func (s *Server) writeApplication(w http.ResponseWriter, id interface{}, application [20]byte) {
	app, err := s.engine.ApplicationInfo(application)
	if err != nil {
		writeEngineError(w, id, "failed to read application", err)
		return
	}
	result := applicationResult{
		Address:  encodeAppAddress(app.Address),
		Approved: app.Approved,
		Disabled: app.Disabled,
	}
	if app.PanicButton != ([20]byte{}) {
		result.PanicButton = encodeStakeAddress(app.PanicButton)
	}
	writeResult(w, id, result)
}

func (s *Server) writeParams(w http.ResponseWriter, id interface{}) {
	params, err := s.engine.CurrentParams()
	if err != nil {
		writeEngineError(w, id, "failed to read parameters", err)
		return
	}
	writeResult(w, id, paramsResult{
		MinimumStake:                bigString(params.MinimumStake),
		AuthorizationCeiling:        params.AuthorizationCeiling,
		NotificationReward:          bigString(params.NotificationReward),
		DiscrepancyPenalty:          bigString(params.DiscrepancyPenalty),
		DiscrepancyRewardMultiplier: params.DiscrepancyRewardMultiplier,
	})
}

func parseParamAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errInvalidAmountString
	}
	if value.Sign() < 0 {
		return nil, errNegativeAmountString
	}
	return value, nil
}
