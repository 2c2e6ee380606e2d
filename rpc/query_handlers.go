package rpc

import (
	"net/http"
)

type addressParams struct {
	Address string `json:"address"`
}

type configResult struct {
	Owner            string `json:"owner"`
	FeeAddress       string `json:"feeAddress"`
	Collection       string `json:"collection"`
	RewardDenom      string `json:"rewardDenom"`
	Duration         uint64 `json:"duration"`
	Enabled          bool   `json:"enabled"`
	CurrentTime      uint64 `json:"currentTime"`
	EpochStart       uint64 `json:"epochStart"`
	EpochActive      bool   `json:"epochActive"`
	TotalStaked      uint64 `json:"totalStaked"`
	TotalDistributed string `json:"totalDistributed"`
	UnstakeFee       string `json:"unstakeFee"`
}

type totalEarnedResult struct {
	TotalEarned string `json:"totalEarned"`
}

type totalLockedResult struct {
	Count uint64 `json:"count"`
}

type stakedRecordsResult struct {
	Records []recordJSON `json:"records"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	view, err := s.engine.QueryConfig()
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &configResult{
		Owner:            formatAddress(view.Owner),
		FeeAddress:       formatAddress(view.FeeAddress),
		Collection:       formatAddress(view.Collection),
		RewardDenom:      view.RewardDenom,
		Duration:         view.Duration,
		Enabled:          view.Enabled,
		CurrentTime:      view.CurrentTime,
		EpochStart:       view.EpochStart,
		EpochActive:      view.EpochActive,
		TotalStaked:      view.TotalStaked,
		TotalDistributed: view.TotalDistributed.String(),
		UnstakeFee:       view.UnstakeFee.String(),
	})
}

func (s *Server) handleGetTotalEarned(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	total, err := s.engine.QueryTotalEarned(addr)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &totalEarnedResult{TotalEarned: total.String()})
}

func (s *Server) handleGetTotalLocked(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, &totalLockedResult{Count: s.engine.QueryTotalLocked()})
}

func (s *Server) handleGetStakedRecords(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	records, err := s.engine.QueryStakedRecords(addr)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	out := make([]recordJSON, len(records))
	for i := range records {
		out[i] = recordToJSON(&records[i])
	}
	writeResult(w, req.ID, &stakedRecordsResult{Records: out})
}
