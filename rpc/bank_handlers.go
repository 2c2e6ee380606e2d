package rpc

import (
	"net/http"
)

type balanceParams struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
}

type balanceResult struct {
	Balance string `json:"balance"`
}

type mintParams struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

type itemMintParams struct {
	Collection string `json:"collection"`
	ItemID     string `json:"itemId"`
	Owner      string `json:"owner"`
}

type itemOwnerParams struct {
	Collection string `json:"collection"`
	ItemID     string `json:"itemId"`
}

type itemOwnerResult struct {
	Owner string `json:"owner"`
}

func (s *Server) handleBankGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.ledger.BalanceOf(addr, params.Denom)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &balanceResult{Balance: balance.String()})
}

func (s *Server) handleBankMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params mintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.Mint(addr, params.Denom, amount); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleRegistryMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params itemMintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	collection, err := parseAddress(params.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.registry.Mint(collection, params.ItemID, owner); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleRegistryOwnerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params itemOwnerParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	collection, err := parseAddress(params.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := s.registry.OwnerOf(collection, params.ItemID)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &itemOwnerResult{Owner: formatAddress(owner)})
}
