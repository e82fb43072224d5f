package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"stakehub/crypto"
	"stakehub/native/staking"
)

type stakeParams struct {
	Caller      string `json:"caller"`
	Operator    string `json:"operator"`
	Beneficiary string `json:"beneficiary,omitempty"`
	Authorizer  string `json:"authorizer,omitempty"`
	Amount      string `json:"amount"`
}

type operatorParams struct {
	Operator string `json:"operator"`
}

type callerOperatorParams struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
}

type callerOperatorAmountParams struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	Amount   string `json:"amount"`
}

type authorizationParams struct {
	Caller      string `json:"caller"`
	Operator    string `json:"operator"`
	Application string `json:"application"`
	Amount      string `json:"amount,omitempty"`
}

type approveDecreaseParams struct {
	Application string `json:"application"`
	Operator    string `json:"operator"`
}

type slashParams struct {
	Application string   `json:"application"`
	Amount      string   `json:"amount"`
	Operators   []string `json:"operators"`
}

type seizeParams struct {
	Application      string   `json:"application"`
	Amount           string   `json:"amount"`
	RewardMultiplier uint64   `json:"rewardMultiplier"`
	Notifier         string   `json:"notifier"`
	Operators        []string `json:"operators"`
}

type processSlashingParams struct {
	Caller string `json:"caller"`
	Count  uint64 `json:"count"`
}

type minStakedParams struct {
	Operator string `json:"operator"`
	Source   string `json:"source"`
}

type authorizationResult struct {
	Application   string `json:"application"`
	Authorized    string `json:"authorized"`
	Deauthorizing string `json:"deauthorizing"`
}

type operatorResult struct {
	Address        string                `json:"address"`
	Owner          string                `json:"owner"`
	Beneficiary    string                `json:"beneficiary"`
	Authorizer     string                `json:"authorizer"`
	NativeStake    string                `json:"nativeStake"`
	LegacyAStake   string                `json:"legacyAStake"`
	LegacyBStake   string                `json:"legacyBStake"`
	TotalStake     string                `json:"totalStake"`
	StakedAt       uint64                `json:"stakedAt"`
	Authorizations []authorizationResult `json:"authorizations,omitempty"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type queueResult struct {
	Head    uint64 `json:"head"`
	Tail    uint64 `json:"tail"`
	Pending uint64 `json:"pending"`
}

type slashEntryResult struct {
	Operator string `json:"operator"`
	Amount   string `json:"amount"`
}

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func decodeBech32(value string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func encodeStakeAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.StakePrefix, addr[:]).String()
}

func encodeAppAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.AppPrefix, addr[:]).String()
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func operatorResultFrom(op *staking.Operator) operatorResult {
	result := operatorResult{
		Address:      encodeStakeAddress(op.Address),
		Owner:        encodeStakeAddress(op.Owner),
		Beneficiary:  encodeStakeAddress(op.Beneficiary),
		Authorizer:   encodeStakeAddress(op.Authorizer),
		NativeStake:  bigString(op.NativeStake),
		LegacyAStake: bigString(op.LegacyAStake),
		LegacyBStake: bigString(op.LegacyBStake),
		TotalStake:   op.TotalStake().String(),
		StakedAt:     op.StakedAt,
	}
	for _, auth := range op.Authorizations {
		result.Authorizations = append(result.Authorizations, authorizationResult{
			Application:   encodeAppAddress(auth.Application),
			Authorized:    bigString(auth.Authorized),
			Deauthorizing: bigString(auth.Deauthorizing),
		})
	}
	return result
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	beneficiary := caller
	if strings.TrimSpace(params.Beneficiary) != "" {
		if beneficiary, err = decodeBech32(params.Beneficiary); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid beneficiary address", err.Error())
			return
		}
	}
	authorizer := caller
	if strings.TrimSpace(params.Authorizer) != "" {
		if authorizer, err = decodeBech32(params.Authorizer); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid authorizer address", err.Error())
			return
		}
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
	if err := s.engine.StakeNative(caller, operator, beneficiary, authorizer, amount); err != nil {
		writeEngineError(w, req.ID, "failed to stake", err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func (s *Server) handleStakeLegacyA(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.legacyOperatorCall(w, req, s.engine.StakeLegacyA, "failed to stake legacy delegation")
}

func (s *Server) handleStakeLegacyB(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.legacyOperatorCall(w, req, s.engine.StakeLegacyB, "failed to stake legacy delegation")
}

func (s *Server) handleTopUpLegacyA(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.legacyOperatorCall(w, req, s.engine.TopUpLegacyA, "failed to top up legacy stake")
}

func (s *Server) handleTopUpLegacyB(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.legacyOperatorCall(w, req, s.engine.TopUpLegacyB, "failed to top up legacy stake")
}

func (s *Server) legacyOperatorCall(w http.ResponseWriter, req *RPCRequest, call func([20]byte) error, action string) {
	var params operatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	if err := call(operator); err != nil {
		writeEngineError(w, req.ID, action, err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.callerOperatorAmountCall(w, r, req, s.engine.TopUpNative, "failed to top up stake")
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.callerOperatorAmountCall(w, r, req, s.engine.UnstakeNative, "failed to unstake")
}

func (s *Server) handleUnstakeLegacyB(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.callerOperatorAmountCall(w, r, req, s.engine.UnstakeLegacyB, "failed to unstake legacy stake")
}

func (s *Server) callerOperatorAmountCall(w http.ResponseWriter, r *http.Request, req *RPCRequest, call func([20]byte, [20]byte, *big.Int) error, action string) {
	var params callerOperatorAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
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
	if err := call(caller, operator, amount); err != nil {
		writeEngineError(w, req.ID, action, err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func (s *Server) handleUnstakeLegacyA(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.callerOperatorCall(w, req, s.engine.UnstakeLegacyA, "failed to unstake legacy stake")
}

func (s *Server) handleUnstakeAll(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.callerOperatorCall(w, req, s.engine.UnstakeAll, "failed to unstake")
}

func (s *Server) handleNotifyLegacyADiscrepancy(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.callerOperatorCall(w, req, s.engine.NotifyLegacyADiscrepancy, "failed to resolve discrepancy")
}

func (s *Server) handleNotifyLegacyBDiscrepancy(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.callerOperatorCall(w, req, s.engine.NotifyLegacyBDiscrepancy, "failed to resolve discrepancy")
}

func (s *Server) callerOperatorCall(w http.ResponseWriter, req *RPCRequest, call func([20]byte, [20]byte) error, action string) {
	var params callerOperatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	if err := call(caller, operator); err != nil {
		writeEngineError(w, req.ID, action, err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func (s *Server) handleIncreaseAuthorization(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params authorizationParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, operator, application, err := decodeAuthorizationTriple(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.IncreaseAuthorization(caller, operator, application, amount); err != nil {
		writeEngineError(w, req.ID, "failed to increase authorization", err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

// handleRequestAuthorizationDecrease files a decrease for the given amount,
// or for the full authorized amount when no amount is supplied.
func (s *Server) handleRequestAuthorizationDecrease(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params authorizationParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, operator, application, err := decodeAuthorizationTriple(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if strings.TrimSpace(params.Amount) == "" {
		if err := s.engine.RequestAuthorizationDecreaseAll(caller, operator, application); err != nil {
			writeEngineError(w, req.ID, "failed to request decrease", err)
			return
		}
		s.writeOperator(w, req.ID, operator)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.RequestAuthorizationDecrease(caller, operator, application, amount); err != nil {
		writeEngineError(w, req.ID, "failed to request decrease", err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func (s *Server) handleRequestAuthorizationDecreaseEverywhere(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.callerOperatorCall(w, req, s.engine.RequestAuthorizationDecreaseEverywhere, "failed to request decrease")
}

func (s *Server) handleApproveAuthorizationDecrease(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params approveDecreaseParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	if err := s.engine.ApproveAuthorizationDecrease(application, operator); err != nil {
		writeEngineError(w, req.ID, "failed to approve decrease", err)
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func decodeAuthorizationTriple(params authorizationParams) (caller, operator, application [20]byte, err error) {
	if caller, err = decodeBech32(params.Caller); err != nil {
		return caller, operator, application, fmt.Errorf("invalid caller address: %w", err)
	}
	if operator, err = decodeBech32(params.Operator); err != nil {
		return caller, operator, application, fmt.Errorf("invalid operator address: %w", err)
	}
	if application, err = decodeBech32(params.Application); err != nil {
		return caller, operator, application, fmt.Errorf("invalid application address: %w", err)
	}
	return caller, operator, application, nil
}

func (s *Server) handleSlash(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params slashParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	operators, err := decodeOperatorList(params.Operators)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Slash(application, amount, operators); err != nil {
		writeEngineError(w, req.ID, "failed to slash", err)
		return
	}
	s.writeQueue(w, req.ID)
}

func (s *Server) handleSeize(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params seizeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	notifier, err := decodeBech32(params.Notifier)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid notifier address", err.Error())
		return
	}
	operators, err := decodeOperatorList(params.Operators)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Seize(application, amount, params.RewardMultiplier, notifier, operators); err != nil {
		writeEngineError(w, req.ID, "failed to seize", err)
		return
	}
	s.writeQueue(w, req.ID)
}

func (s *Server) handleProcessSlashing(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params processSlashingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.ProcessSlashing(caller, params.Count); err != nil {
		writeEngineError(w, req.ID, "failed to process slashing", err)
		return
	}
	s.writeQueue(w, req.ID)
}

func decodeOperatorList(raw []string) ([][20]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one operator required")
	}
	operators := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		addr, err := decodeBech32(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid operator address %q: %w", entry, err)
		}
		operators = append(operators, addr)
	}
	return operators, nil
}

// --- Views ---

func (s *Server) handleOperatorInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params operatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	s.writeOperator(w, req.ID, operator)
}

func (s *Server) handleAvailableToAuthorize(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.operatorApplicationView(w, req, s.engine.AvailableToAuthorize, "failed to read authorization headroom")
}

func (s *Server) handleAuthorizedAmount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.operatorApplicationView(w, req, s.engine.AuthorizedAmount, "failed to read authorized amount")
}

func (s *Server) operatorApplicationView(w http.ResponseWriter, req *RPCRequest, view func([20]byte, [20]byte) (*big.Int, error), action string) {
	var params struct {
		Operator    string `json:"operator"`
		Application string `json:"application"`
	}
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	application, err := decodeBech32(params.Application)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid application address", err.Error())
		return
	}
	amount, err := view(operator, application)
	if err != nil {
		writeEngineError(w, req.ID, action, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(amount)})
}

func (s *Server) handleEligibleStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.operatorApplicationView(w, req, s.engine.EligibleStake, "failed to read eligible stake")
}

func (s *Server) handleAuthorizedApplications(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params operatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	apps, err := s.engine.AuthorizedApplications(operator)
	if err != nil {
		writeEngineError(w, req.ID, "failed to list authorized applications", err)
		return
	}
	encoded := make([]string, 0, len(apps))
	for _, app := range apps {
		encoded = append(encoded, encodeAppAddress(app))
	}
	writeResult(w, req.ID, encoded)
}

func (s *Server) handleMaxAuthorization(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params operatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	amount, err := s.engine.MaxAuthorization(operator)
	if err != nil {
		writeEngineError(w, req.ID, "failed to read maximum authorization", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(amount)})
}

func (s *Server) handleHasStakeDelegated(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params operatorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	delegated, err := s.engine.HasStakeDelegated(operator)
	if err != nil {
		writeEngineError(w, req.ID, "failed to read delegation state", err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"delegated": delegated})
}

func (s *Server) handleMinStaked(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params minStakedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	operator, err := decodeBech32(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid operator address", err.Error())
		return
	}
	source := staking.StakeSource(strings.TrimSpace(params.Source))
	if !source.Valid() {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid stake source", params.Source)
		return
	}
	amount, err := s.engine.MinStaked(operator, source)
	if err != nil {
		writeEngineError(w, req.ID, "failed to read minimum staked amount", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(amount)})
}

func (s *Server) handleSlashingQueue(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.writeQueue(w, req.ID)
}

func (s *Server) handlePendingSlashes(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	pending, err := s.engine.PendingSlashes()
	if err != nil {
		writeEngineError(w, req.ID, "failed to read pending slashes", err)
		return
	}
	entries := make([]slashEntryResult, 0, len(pending))
	for _, entry := range pending {
		entries = append(entries, slashEntryResult{
			Operator: encodeStakeAddress(entry.Operator),
			Amount:   bigString(entry.Amount),
		})
	}
	writeResult(w, req.ID, entries)
}

func (s *Server) handleTreasuryBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	balance, err := s.engine.TreasuryBalance()
	if err != nil {
		writeEngineError(w, req.ID, "failed to read treasury balance", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(balance)})
}

func (s *Server) writeOperator(w http.ResponseWriter, id interface{}, operator [20]byte) {
	op, err := s.engine.OperatorInfo(operator)
	if err != nil {
		writeEngineError(w, id, "failed to read operator", err)
		return
	}
	writeResult(w, id, operatorResultFrom(op))
}

func (s *Server) writeQueue(w http.ResponseWriter, id interface{}) {
	head, tail, err := s.engine.SlashingQueue()
	if err != nil {
		writeEngineError(w, id, "failed to read slashing queue", err)
		return
	}
	writeResult(w, id, queueResult{Head: head, Tail: tail, Pending: tail - head})
}
