package rpc

import (
	"net/http"
)

type setAddressParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type setDurationParams struct {
	Caller   string `json:"caller"`
	Duration uint64 `json:"duration"`
}

type setFeeParams struct {
	Caller string `json:"caller"`
	Fee    string `json:"fee"`
}

type setEnabledParams struct {
	Caller  string `json:"caller"`
	Enabled bool   `json:"enabled"`
}

type updateConfigParams struct {
	Caller     string `json:"caller"`
	Owner      string `json:"owner"`
	FeeAddress string `json:"feeAddress"`
	Collection string `json:"collection"`
	Duration   uint64 `json:"duration"`
	UnstakeFee string `json:"unstakeFee"`
}

type treasuryParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handleSetOwner(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSetAddress(w, req, s.engine.SetOwner)
}

func (s *Server) handleSetFeeAddress(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSetAddress(w, req, s.engine.SetFeeAddress)
}

func (s *Server) handleSetCollection(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSetAddress(w, req, s.engine.SetCollection)
}

func (s *Server) handleSetAddress(w http.ResponseWriter, req *RPCRequest, apply func(caller, addr [20]byte) error) {
	var params setAddressParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := apply(caller, addr); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleSetDuration(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setDurationParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.SetDuration(caller, params.Duration); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleSetUnstakeFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setFeeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	fee, err := parseNonNegativeBigInt(params.Fee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.SetUnstakeFee(caller, fee); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setEnabledParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.SetEnabled(caller, params.Enabled); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params updateConfigParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	feeAddress, err := parseAddress(params.FeeAddress)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	collection, err := parseAddress(params.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	fee, err := parsePositiveBigInt(params.UnstakeFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.UpdateConfig(caller, owner, feeAddress, collection, params.Duration, fee); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleWithdrawTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params treasuryParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.WithdrawTreasury(caller, amount); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}
