package rpc

import (
	"net/http"

	"stakevault/native/stake"
)

type depositParams struct {
	Caller string `json:"caller"`
	ItemID string `json:"itemId"`
}

type withdrawParams struct {
	Caller  string         `json:"caller"`
	ItemID  string         `json:"itemId"`
	Payment *paymentParams `json:"payment,omitempty"`
}

type paymentParams struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type itemActionParams struct {
	Caller string `json:"caller"`
	ItemID string `json:"itemId"`
}

type airdropParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type recordJSON struct {
	ItemID     string `json:"itemId"`
	Collection string `json:"collection"`
	LockExpiry uint64 `json:"lockExpiry"`
	Reward     string `json:"reward"`
}

type depositResult struct {
	Record recordJSON `json:"record"`
}

type claimResult struct {
	Amount string `json:"amount"`
}

type airdropResult struct {
	Amount    string `json:"amount"`
	Eligible  uint64 `json:"eligible"`
	Share     string `json:"share"`
	Remainder string `json:"remainder"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params depositParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	view, err := s.engine.QueryConfig()
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}

	// Move the item into vault custody, then notify the ledger. A rejected
	// notification hands the item straight back.
	if err := s.registry.Transfer(view.Collection, params.ItemID, caller, s.vault); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	record, err := s.engine.Deposit(&stake.DepositNotice{
		Origin:        view.Collection,
		Sender:        caller,
		ItemID:        params.ItemID,
		ClaimedSender: caller,
		ClaimedItemID: params.ItemID,
	})
	if err != nil {
		if returnErr := s.registry.Transfer(view.Collection, params.ItemID, s.vault, caller); returnErr != nil {
			s.logger.Error("failed to return item after rejected deposit",
				"itemId", params.ItemID, "err", returnErr)
		}
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &depositResult{Record: recordToJSON(record)})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params withdrawParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	var payment *stake.Payment
	if params.Payment != nil {
		amount, err := parsePositiveBigInt(params.Payment.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		payment = &stake.Payment{Denom: params.Payment.Denom, Amount: amount}
	}
	if err := s.engine.Withdraw(caller, params.ItemID, payment); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params itemActionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.engine.Renew(caller, params.ItemID)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &depositResult{Record: recordToJSON(record)})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params itemActionParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.engine.Claim(caller, params.ItemID)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &claimResult{Amount: amount.String()})
}

func (s *Server) handleAnnounceAirdrop(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params airdropParams
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
	outcome, err := s.engine.AnnounceAirdrop(caller, amount)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &airdropResult{
		Amount:    outcome.Amount.String(),
		Eligible:  outcome.Eligible,
		Share:     outcome.Share.String(),
		Remainder: outcome.Remainder.String(),
	})
}

func (s *Server) handleRestartEpoch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.RestartEpoch(caller); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, &okResult{OK: true})
}

func recordToJSON(record *stake.StakeRecord) recordJSON {
	if record == nil {
		return recordJSON{}
	}
	reward := "0"
	if record.Reward != nil {
		reward = record.Reward.String()
	}
	return recordJSON{
		ItemID:     record.ItemID,
		Collection: formatAddress(record.Collection),
		LockExpiry: record.LockExpiry,
		Reward:     reward,
	}
}
