package httpapi

import (
	"net/http"
)

type KBHandler struct {
	KB KnowledgeView
	// PromptPerCategory is the default n for ?trim=1.
	PromptPerCategory int
}

// Get returns the category mapping. With ?trim=1 only prompt fields and at
// most ?n= records per category are returned.
func (h KBHandler) Get(w http.ResponseWriter, r *http.Request) {
	if queryBool(r, "trim") {
		WriteJSON(w, http.StatusOK, h.KB.Trimmed(queryInt(r, "n", h.PromptPerCategory)))
		return
	}
	WriteJSON(w, http.StatusOK, h.KB.KnowledgeBase().Categories)
}

func (h KBHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.KB.Stats())
}
