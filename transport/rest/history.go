package rest

import "net/http"

func (that *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := that.history.List(r.Context())
	if err != nil {
		that.fail(w, r, "ListHistory", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (that *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := that.history.Clear(r.Context()); err != nil {
		that.fail(w, r, "ClearHistory", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := that.history.Stats(r.Context())
	if err != nil {
		that.fail(w, r, "Stats", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
