package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"brokemate/internal/core"
	"brokemate/internal/log"
)

type transactionRequest struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

type budgetRequest struct {
	Amount json.Number `json:"amount"`
}

type transactionResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	UserID      int64   `json:"user_id"`
}

type summaryResponse struct {
	Budget       float64               `json:"budget"`
	TotalSpent   float64               `json:"total_spent"`
	MoneyLeft    float64               `json:"money_left"`
	Transactions []transactionResponse `json:"variable_transactions"`
	UserEmail    string                `json:"user_email"`
}

type spendingResponse struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

type budgetResponse struct {
	Message   string  `json:"message"`
	NewBudget float64 `json:"new_budget"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Description: t.Description,
		Amount:      core.Float(t.Amount),
		Category:    t.Category,
		UserID:      t.UserID,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user *core.User) {
	summary, err := s.transactions.Summary(r.Context(), *user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	txs := make([]transactionResponse, 0, len(summary.Transactions))
	for _, t := range summary.Transactions {
		txs = append(txs, toTransactionResponse(t))
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Budget:       core.Float(summary.Budget),
		TotalSpent:   core.Float(summary.TotalSpent),
		MoneyLeft:    core.Float(summary.MoneyLeft),
		Transactions: txs,
		UserEmail:    summary.Email,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		s.writeServiceError(w, r, core.Invalid(err))
		return
	}

	t, err := s.transactions.Create(r.Context(), user.ID, req.Description, amount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(t.ID, t.Amount.String(), t.Category).
			ToSlice()...)

	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeServiceError(w, r, core.ErrNotFound)
		return
	}

	if err := s.transactions.Delete(r.Context(), user.ID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)

	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction deleted"})
}

func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request, user *core.User) {
	groups, err := s.transactions.SpendingByCategory(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := spendingResponse{
		Labels: make([]string, 0, len(groups)),
		Data:   make([]float64, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Labels = append(resp.Labels, g.Name)
		resp.Data = append(resp.Data, core.Float(g.Amount))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		// Missing or unparsable amounts are reported like non-positive ones.
		s.writeServiceError(w, r, core.Invalid(core.ErrInvalidBudget))
		return
	}

	budget, err := s.transactions.UpdateBudget(r.Context(), user.ID, amount)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldAmount, budget.String())

	writeJSON(w, http.StatusOK, budgetResponse{Message: "Budget updated", NewBudget: core.Float(budget)})
}
