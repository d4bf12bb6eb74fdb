package http

import (
	"fmt"
	"net/http"

	"samplace/internal/amqp"
	"samplace/internal/log"
)

// handleAdd records a new transaction. Rejected input answers 422 and
// writes nothing.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	t, err := ParseTransaction(r.PostForm)
	if err != nil {
		ServiceErrorResponse(err).Write(w)
		return
	}

	saved, err := s.ledger.Add(r.Context(), t)
	if err != nil {
		s.logFailure(r.Context(), "Add transaction failed", err, log.OpCreate)
		ServiceErrorResponse(err).Write(w)
		return
	}

	SuccessResponse(amqp.OpAdd, saved.ID,
		fmt.Sprintf("Transaction #%d recorded: %s", saved.ID, saved.Description)).
		TriggerFormReset().
		Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := ParseID(r.PostForm.Get("id"))
	if err != nil {
		BadRequestError("Missing or invalid transaction id").Write(w)
		return
	}
	t, err := ParseTransaction(r.PostForm)
	if err != nil {
		ServiceErrorResponse(err).Write(w)
		return
	}
	t.ID = id

	saved, err := s.ledger.Edit(r.Context(), t)
	if err != nil {
		s.logFailure(r.Context(), "Edit transaction failed", err, log.OpUpdate)
		ServiceErrorResponse(err).Write(w)
		return
	}

	SuccessResponse(amqp.OpEdit, saved.ID,
		fmt.Sprintf("Transaction #%d updated", saved.ID)).
		Write(w)
}

// handleDelete accepts POST forms and DELETE requests carrying the id in the
// body or the query string.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	id, err := ParseID(parser.Get("id"))
	if err != nil {
		BadRequestError("Missing or invalid transaction id").Write(w)
		return
	}

	if err := s.ledger.Remove(r.Context(), id); err != nil {
		s.logFailure(r.Context(), "Delete transaction failed", err, log.OpDelete)
		ServiceErrorResponse(err).Write(w)
		return
	}

	SuccessResponse(amqp.OpDelete, id,
		fmt.Sprintf("Transaction #%d deleted", id)).
		Write(w)
}
